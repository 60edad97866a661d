package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/safedump/internal/export"
	"github.com/samcharles93/safedump/internal/logger"
	"github.com/samcharles93/safedump/internal/source"
)

func inspectCmd() *cli.Command {
	var (
		file   string
		limit  int
		filter string
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Print the header and tensor index of a container",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to .safetensors file",
				Destination: &file,
				Required:    true,
			},
			&cli.IntFlag{Name: "limit", Usage: "limit tensor listing (0 = no limit)", Destination: &limit},
			&cli.StringFlag{Name: "filter", Usage: "substring filter for tensor names", Destination: &filter},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			buf, err := source.Open(file)
			if err != nil {
				return fmt.Errorf("open %s: %w", file, err)
			}
			defer func() { _ = buf.Close() }()
			log.Debug("opened container", "path", file, "bytes", buf.Len(), "mmap", buf.Mapped())

			h, descs, err := newDecoder().Inspect(buf.Bytes())
			if err != nil {
				return fmt.Errorf("inspect %s: %w", file, err)
			}

			w := outWriter(cmd)
			_, _ = fmt.Fprintf(w, "File: %s (%s)\n", file, formatBytes(uint64(buf.Len())))
			_, _ = fmt.Fprintf(w, "Header: %d bytes, data region at %d\n", h.Length, h.DataStart())
			if len(h.Metadata) > 0 {
				_, _ = fmt.Fprintf(w, "Metadata: %s\n", h.Metadata)
			}
			_, _ = fmt.Fprintf(w, "Tensors: %d\n", len(descs))

			region := h.DataRegion(buf.Bytes())
			summaries := make([]export.Summary, 0, len(descs))
			for _, d := range descs {
				if filter != "" && !strings.Contains(d.Name, filter) {
					continue
				}
				summaries = append(summaries, export.Summarize(d, region))
			}
			printSummaries(w, summaries, limit)
			return nil
		},
	}
}

func printSummaries(w io.Writer, summaries []export.Summary, limit int) {
	if len(summaries) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tDTYPE\tSHAPE\tELEMENTS\tOFFSETS\tXXH64")
	for i, s := range summaries {
		if limit > 0 && i >= limit {
			_, _ = fmt.Fprintf(tw, "... %d more\n", len(summaries)-limit)
			break
		}
		sum := s.Checksum
		if sum == "" {
			sum = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%v\t%d\t[%d, %d)\t%s\n", s.Name, s.DType, s.Shape, s.Elements, s.Begin, s.End, sum)
	}
	_ = tw.Flush()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
