package main

import (
	"fmt"
	"os"
)

func main() {
	a := newApp()
	rootCmd := newRootCmd(a)
	rootCmd.SetOut(os.Stdout)

	err := rootCmd.Execute()
	a.shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
