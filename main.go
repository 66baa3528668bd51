/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/fitkit/authserver/cmd"

func main() {
	cmd.Execute()
}
