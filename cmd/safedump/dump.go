package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/safedump/internal/export"
	"github.com/samcharles93/safedump/internal/logger"
	"github.com/samcharles93/safedump/internal/source"
	"github.com/samcharles93/safedump/pkg/safetensors"
)

func dumpCmd() *cli.Command {
	var (
		file      string
		out       string
		tensors   []string
		withInfo  bool
		compress  string
		keepGoing bool
	)

	return &cli.Command{
		Name:  "dump",
		Usage: "Decode tensors and write them as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to .safetensors file",
				Destination: &file,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output path (- for stdout); a .zst suffix enables zstd",
				Value:       "-",
				Destination: &out,
			},
			&cli.StringSliceFlag{
				Name:        "tensor",
				Aliases:     []string{"t"},
				Usage:       "only decode the named tensor (repeatable)",
				Destination: &tensors,
			},
			&cli.BoolFlag{
				Name:        "with-info",
				Usage:       "write {dtype, shape, data} objects instead of bare arrays",
				Destination: &withInfo,
			},
			&cli.StringFlag{
				Name:        "compress",
				Usage:       "output compression (none, zstd); defaults from the output suffix",
				Destination: &compress,
			},
			&cli.BoolFlag{
				Name:        "keep-going",
				Usage:       "skip tensors that fail to decode instead of aborting",
				Destination: &keepGoing,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyDumpConfig(cmd, cfg, &compress)

			comp, err := resolveCompression(compress, out)
			if err != nil {
				return err
			}

			buf, err := source.Open(file)
			if err != nil {
				return fmt.Errorf("open %s: %w", file, err)
			}
			defer func() { _ = buf.Close() }()

			decoded, err := decodeTensors(log, newDecoder(), buf.Bytes(), tensors, keepGoing)
			if err != nil {
				return fmt.Errorf("dump %s: %w", file, err)
			}

			w, err := openOutput(cmd, out, comp)
			if err != nil {
				return err
			}
			if err := export.WriteJSON(w, decoded, export.Options{WithInfo: withInfo}); err != nil {
				_ = w.Close()
				return fmt.Errorf("write %s: %w", out, err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			log.Info("dumped tensors", "file", file, "out", out, "tensors", len(decoded), "compress", string(comp))
			return nil
		},
	}
}

// decodeTensors decodes the selected tensors of buf. Header failures always
// abort; with keepGoing a failing tensor is logged and skipped.
func decodeTensors(log logger.Logger, dec *safetensors.Decoder, buf []byte, names []string, keepGoing bool) ([]*safetensors.Tensor, error) {
	h, descs, err := dec.Inspect(buf)
	if err != nil {
		return nil, err
	}
	if len(names) > 0 {
		if descs, err = safetensors.Select(descs, names); err != nil {
			return nil, err
		}
	}

	region := h.DataRegion(buf)
	out := make([]*safetensors.Tensor, 0, len(descs))
	var failed []error
	for _, d := range descs {
		t, err := dec.Extract(region, d)
		if err == nil {
			err = export.CheckFinite(t)
		}
		if err != nil {
			if !keepGoing {
				return nil, err
			}
			log.Warn("skipping tensor", "tensor", d.Name, "kind", safetensors.KindName(err), "error", err)
			failed = append(failed, err)
			continue
		}
		log.Debug("decoded tensor", "tensor", d.Name, "dtype", d.DType.String(), "shape", fmt.Sprint(d.Shape))
		out = append(out, t)
	}
	if len(failed) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("no tensor decoded: %w", errors.Join(failed...))
	}
	return out, nil
}

func resolveCompression(flag, out string) (export.Compression, error) {
	if flag != "" {
		return export.ParseCompression(flag)
	}
	if out == "-" {
		return export.CompressNone, nil
	}
	return export.CompressionFromPath(out), nil
}

func openOutput(cmd *cli.Command, out string, comp export.Compression) (io.WriteCloser, error) {
	if out == "" || out == "-" {
		return export.Wrap(outWriter(cmd), comp)
	}
	return export.Create(out, comp)
}
