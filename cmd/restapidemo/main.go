package main

import (
	"context"
	"log/slog"
	"os"

	"restapidemo/internal/app"
	_ "restapidemo/internal/users"
)

// startup is the runtime entry point; tests replace it.
var startup = app.Run

// main hands the process arguments to the runtime together with the scan
// root. Everything else, flags included, is the runtime's business.
func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		slog.Error("restapidemo exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	return startup(ctx, args, app.ScanBasePackage)
}
