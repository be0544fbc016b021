// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/typesreg/typesreg/cmd/typesreg"

func main() {
	cmd.Execute()
}
