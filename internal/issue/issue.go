// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	DistDirMissingId Id = iota + 1
	NoAssetsId
	ToolNotFoundId
	BuildFailedId
	ChecksumMismatchId
	ConfigLoadFailedId
	AuthRequiredId
	ReleaseHostFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // links to relkit documentation
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal Markdown with the given glamour style
// ("dark", "light", "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also:\n")
		for _, links := range [][]HttpLink{i.docLinks, i.extLinks} {
			for _, link := range links {
				md.WriteString("- <" + string(link) + ">\n")
			}
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	distDirMissingIssue = &Issue{
		id: DistDirMissingId,
		mdMsg: `
# Distribution directory not found!

The release step uploads the files produced by the build step, but the
distribution directory does not exist. Nothing was sent to the release host.

## Things you can try:
- Run the build step first:
~~~
$ relkit build-release
~~~
- Point the release step at the right directory:
~~~
$ relkit upload-release --dist-dir path/to/dist
~~~`,
	}

	noAssetsIssue = &Issue{
		id: NoAssetsId,
		mdMsg: `
# No files to upload

The distribution directory exists but is empty. The release was created or
reused, and no assets were uploaded.

## Things you can try:
- Check that the build step wrote its archives to the same directory
- Inspect the directory with ` + "`ls -la dist/`",
	}

	toolNotFoundIssue = &Issue{
		id: ToolNotFoundId,
		mdMsg: `
# Required tool not found!

relkit drives external tools (go, git and optionally gh) and one of them
could not be started.

## Things you can try:
- Make sure the tool is installed and on your PATH
- Use the HTTP API host instead of the gh CLI:
~~~cue
release: host: "api"
~~~
- Use the built-in history backend instead of the git CLI:
~~~cue
release: history: "gogit"
~~~`,
		extLinks: []HttpLink{"https://cli.github.com/"},
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# Build failed!

The go toolchain exited with an error for one of the targets. The build is
fail-fast, so later targets were not attempted.

## Things you can try:
- Reproduce the failure locally:
~~~
$ CGO_ENABLED=0 GOOS=linux GOARCH=amd64 go build ./...
~~~
- Make sure the package builds without cgo
- Review ` + "`build_flags`" + ` in your configuration`,
	}

	checksumMismatchIssue = &Issue{
		id: ChecksumMismatchId,
		mdMsg: `
# Checksum mismatch!

One or more files in the distribution directory do not match the manifest.
The files were modified after the manifest was written.

## Things you can try:
- Rebuild the artifacts with ` + "`relkit build-release`" + `
- Make sure nothing else writes into the distribution directory`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be parsed or did not match the schema.

## Things you can try:
- Print the effective configuration:
~~~
$ relkit config show
~~~
- Check the file for CUE syntax errors
- Remove unknown keys; the schema is closed`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	authRequiredIssue = &Issue{
		id: AuthRequiredId,
		mdMsg: `
# Authentication required!

The release host rejected the request or no token was available.

## Things you can try:
- Export a token with ` + "`contents: write`" + ` permission:
~~~
$ export GITHUB_TOKEN=...
~~~
- In CI, pass the workflow token to the job environment`,
	}

	releaseHostFailedIssue = &Issue{
		id: ReleaseHostFailedId,
		mdMsg: `
# Release host request failed!

Creating the release or uploading its assets failed. The reconciler is
idempotent, so re-running the release step is safe.

## Things you can try:
- Re-run the release step; existing releases are reused and assets replaced
- Check the repository name passed with ` + "`--repo`",
	}

	issues = map[Id]*Issue{
		distDirMissingIssue.Id():    distDirMissingIssue,
		noAssetsIssue.Id():          noAssetsIssue,
		toolNotFoundIssue.Id():      toolNotFoundIssue,
		buildFailedIssue.Id():       buildFailedIssue,
		checksumMismatchIssue.Id():  checksumMismatchIssue,
		configLoadFailedIssue.Id():  configLoadFailedIssue,
		authRequiredIssue.Id():      authRequiredIssue,
		releaseHostFailedIssue.Id(): releaseHostFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
