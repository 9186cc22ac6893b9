package ui

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"tarsearch/internal/ingest"
	"tarsearch/internal/search"
)

func overrideConfig(cfg Config, c *cli.Context) Config {
	if c.String("StoragePath") != "" {
		cfg.StoragePath = c.String("StoragePath")
	}
	if c.Int("MemoryLimitMb") != 0 {
		cfg.MemoryLimitMb = c.Int("MemoryLimitMb")
	}
	if c.String("ListenAddr") != "" {
		cfg.ListenAddr = c.String("ListenAddr")
	}
	return cfg
}

func NewConsole(logger *zap.Logger) *cli.App {
	prepareCfg := func(c *cli.Context) (Config, error) {
		cfg, err := LoadConfig()
		if errors.Is(err, errNoConfigFile) {
			cfg, err = DefaultCfg, nil
		}
		if err != nil {
			return cfg, err
		}
		logger.Debug("Loaded config", zap.Any("config", cfg))
		cfg = overrideConfig(cfg, c)
		return cfg, cfg.Validate()
	}

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "StoragePath",
			Aliases: []string{"storage"},
			Usage:   "where to store the index files (relative to cwd supported)",
		},
		&cli.IntFlag{
			Name:    "MemoryLimitMb",
			Aliases: []string{"mem"},
			Usage:   "soft cap on the in-memory postings estimate during a build (MiB)",
		},
		&cli.StringFlag{
			Name:    "ListenAddr",
			Aliases: []string{"listen"},
			Usage:   "address the HTTP API listens on",
		},
	}

	return &cli.App{
		Name:  "tarsearch",
		Usage: "builds and queries a BM25 inverted index over a tar.gz corpus",
		Commands: []*cli.Command{
			{
				Name:        "build",
				Flags:       flags,
				ArgsUsage:   "<archive.tar.gz>",
				Description: "Builds the index from a gzipped tar archive of '<doc_id> <text...>' lines.",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 1 {
						return cli.Exit("usage: tarsearch build <archive.tar.gz>", 1)
					}
					cfg, err := prepareCfg(c)
					if err != nil {
						return err
					}
					builder := ingest.Builder{
						Storage:     cfg.StoragePath,
						MemoryLimit: int64(cfg.MemoryLimitMb) * 1024 * 1024,
						Logger:      logger,
					}
					return builder.Build(c.Args().First())
				},
			},
			{
				Name:        "search",
				Flags:       flags,
				Description: "Interactive query loop over a built index.",
				Action: func(c *cli.Context) error {
					cfg, err := prepareCfg(c)
					if err != nil {
						return err
					}
					engine, err := search.Open(cfg.StoragePath, logger)
					if err != nil {
						return err
					}
					defer engine.Close()
					return promptLoop(engine)
				},
			},
			{
				Name:        "serve",
				Flags:       flags,
				Description: "Serves queries over an HTTP JSON API.",
				Action: func(c *cli.Context) error {
					cfg, err := prepareCfg(c)
					if err != nil {
						return err
					}
					engine, err := search.Open(cfg.StoragePath, logger)
					if err != nil {
						return err
					}
					defer engine.Close()
					logger.Info("listening", zap.String("addr", cfg.ListenAddr))
					return NewServer(engine).Listen(cfg.ListenAddr)
				},
			},
			{
				Name:        "gen",
				Flags:       flags,
				Description: "Generates config to stdOut.",
				Action: func(c *cli.Context) error {
					cfg := overrideConfig(DefaultCfg, c)
					yamlData, err := yaml.Marshal(&cfg)
					if err != nil {
						return err
					}
					fmt.Print(string(yamlData))
					return nil
				},
			},
		},
	}
}

// promptLoop mirrors the classic interactive surface: a query prompt (empty
// line or "q" exits) followed by a mode prompt, then up to 10 ranked hits.
func promptLoop(engine *search.Engine) error {
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Enter your search query (or 'q' to exit): ")
		if !in.Scan() {
			return in.Err()
		}
		query := strings.TrimSpace(in.Text())
		if query == "" || query == "q" {
			return nil
		}

		fmt.Print("Enter search mode (0 for disjunctive, 1 for conjunctive): ")
		if !in.Scan() {
			return in.Err()
		}
		mode := strings.TrimSpace(in.Text())
		if mode != "0" && mode != "1" {
			fmt.Println("unknown mode, expected 0 or 1")
			continue
		}

		results := engine.Query(query, mode == "1")
		fmt.Println("Top 10 results:")
		for _, r := range results {
			fmt.Printf("Doc ID: %d, Score: %g\n", r.DocID, r.Score)
		}
	}
}
