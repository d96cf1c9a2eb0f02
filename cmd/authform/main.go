// Command authform serves the sign-in and registration pages.
package main

import (
	"context"
	"os"

	"github.com/dalemusser/authform/app"
	"github.com/dalemusser/authform/internal/app/bootstrap"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		os.Exit(1)
	}
}
