package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/volvulus/untwist/internal/cli"
	"github.com/volvulus/untwist/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := cli.New(os.Stderr, log.InfoLevel).RootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		if stderrors.Is(err, context.Canceled) || errors.Is(err, errors.ErrCodeCanceled) {
			os.Exit(130) // SIGINT convention
		}
		fmt.Fprintln(os.Stderr, "Error:", errors.UserMessage(err))
		os.Exit(1)
	}
}
