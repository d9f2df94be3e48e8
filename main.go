package main

import "github.com/theirongolddev/moneyshape/cmd"

func main() {
	cmd.Execute()
}
