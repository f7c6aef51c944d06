// Package main 是 lookrank 命令行入口。
//
//	lookrank serve --config configs/lookrank.yaml
//	lookrank rank --user ana feed.json
package main

import (
	"os"

	"github.com/matheusschuckar/look-pro/cmd/lookrank/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
