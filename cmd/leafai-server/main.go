// @title Leaf AI API
// @version 1.0
// @description Leaf disease analysis backend
// @BasePath /api
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"leafai-server-go/internal/bootstrap"
)

func main() {
	fmt.Printf("[%s] [INFO] [BOOT] starting leafai-server...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "leafai-server failed: %v\n", err)
		os.Exit(1)
	}
}
