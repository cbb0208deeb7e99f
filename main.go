// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/codebutton/codebutton/cmd/codebutton"

func main() {
	cmd.Execute()
}
