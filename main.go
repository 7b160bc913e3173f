package main

import "github.com/neplg/neplg2/cmd/neplg2"

func main() {
	cmd.Execute()
}
