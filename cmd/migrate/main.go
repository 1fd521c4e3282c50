package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nanotrace/certification-backend/internal/tools/common"
	tool "github.com/nanotrace/certification-backend/internal/tools/migrate"
)

func main() {
	if err := tool.NewRootCommand().Execute(); err != nil {
		var exitErr *common.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
