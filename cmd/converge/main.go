// Copyright 2026 © The Converge Authors
// SPDX-License-Identifier: Apache-2.0

// Command converge runs domain packs and eval fixtures from the terminal.
package main

import (
	"context"
	"os"
)

func main() {
	app := NewApp()
	if err := app.Execute(context.Background()); err != nil {
		app.PrintError(err)
		os.Exit(1)
	}
}
