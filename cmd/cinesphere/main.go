// Command cinesphere 提供电影推荐服务。
//
//	cinesphere [serve] [-config config.yaml]
//	cinesphere publish [-config config.yaml] [-catalog movie_dict.json] [-similarity similarity.bin]
//
// serve 加载目录与相似度矩阵并启动 HTTP 服务；publish 把本地产物校验后写入 Redis，
// 供 artifacts.source=redis 的副本加载。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rushteam/cinesphere/config"
	"github.com/rushteam/cinesphere/logging"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logging.Error().Err(err).Msg("cinesphere exited")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	flags := flag.NewFlagSet(cmd, flag.ContinueOnError)
	configPath := flags.String("config", "", "path to config file (default $CONFIG_PATH or ./config.yaml)")
	var catalogPath, similarityPath *string
	if cmd == "publish" {
		catalogPath = flags.String("catalog", "", "catalog artifact to publish (default artifacts.catalog_path)")
		similarityPath = flags.String("similarity", "", "similarity artifact to publish (default artifacts.similarity_path)")
	}
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Caller: cfg.Log.Caller})

	switch cmd {
	case "serve":
		return serve(ctx, cfg)
	case "publish":
		if *catalogPath != "" {
			cfg.Artifacts.CatalogPath = *catalogPath
		}
		if *similarityPath != "" {
			cfg.Artifacts.SimilarityPath = *similarityPath
		}
		return publish(ctx, cfg)
	default:
		return fmt.Errorf("unknown command %q (want serve or publish)", cmd)
	}
}
