package main

import (
	"context"
	"fmt"
	"os"

	"github.com/formrelay/form-api/cmd/keygen/cmds"
)

func main() {
	if err := cmds.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}
