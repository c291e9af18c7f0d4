package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/slr/slrgo/internal/cpf"
)

func newFetchCmd() *cobra.Command {
	var (
		archiveURL string
		cacheDir   string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "fetch <name>",
		Short: "Download a CPF file from a prediction archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			name := args[0]

			fetcher := cpf.NewFetcher(archiveURL)
			data, err := fetcher.Fetch(cmd.Context(), name)
			if err != nil {
				return err
			}

			tables, err := cpf.ParseBytes(data, logger)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", name, err)
			}

			if cacheDir != "" {
				cache := cpf.NewCache(cacheDir, 5)
				if err := cache.Write(data, time.Now()); err != nil {
					logger.Warn("cache write failed", "error", err)
				}
			}
			if output != "" {
				if err := os.WriteFile(output, data, 0644); err != nil {
					return err
				}
			}

			for _, e := range tables {
				fmt.Printf("%-16s cospar=%-9s sic=%-5s norad=%-6s %s .. %s interval=%gs samples=%d\n",
					e.TargetName, e.CosparID, e.SIC, e.NoradID,
					fmtTime(e.Start), fmtTime(e.End), e.Interval, len(e.Samples))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&archiveURL, "url", "", "Archive base URL (default: EDC current predictions)")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Also store the document in this cache directory")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Also write the raw document to this file")

	return cmd
}
