// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/relkit/relkit/cmd/relkit"

func main() {
	cmd.Execute()
}
