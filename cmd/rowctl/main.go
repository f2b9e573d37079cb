/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ssargent/rowcodec/cmd/rowctl/cmd"

func main() {
	cmd.Execute()
}
