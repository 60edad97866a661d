package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/safedump/internal/export"
	"github.com/samcharles93/safedump/internal/idmap"
	"github.com/samcharles93/safedump/internal/logger"
	"github.com/samcharles93/safedump/internal/source"
	"github.com/samcharles93/safedump/pkg/safetensors"
)

type joined struct {
	Vectors any      `json:"vectors"`
	DocIDs  []string `json:"docids"`
}

func joinCmd() *cli.Command {
	var (
		vectorsPath string
		docidsPath  string
		mappingPath string
		out         string
		vectorsName string
		docidsName  string
	)

	return &cli.Command{
		Name:  "join",
		Usage: "Join a vectors container with its doc ids",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "vectors",
				Usage:       "container holding the vectors tensor",
				Destination: &vectorsPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "docids",
				Usage:       "container holding the doc index tensor",
				Destination: &docidsPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "mapping",
				Usage:       "JSON object of docid -> index",
				Destination: &mappingPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output path (- for stdout); a .zst suffix enables zstd",
				Value:       "-",
				Destination: &out,
			},
			&cli.StringFlag{
				Name:        "vectors-tensor",
				Usage:       "name of the vectors tensor",
				Value:       "vectors",
				Destination: &vectorsName,
			},
			&cli.StringFlag{
				Name:        "docids-tensor",
				Usage:       "name of the doc index tensor",
				Value:       "docids",
				Destination: &docidsName,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			dec := newDecoder()

			vectors, err := loadTensor(dec, vectorsPath, vectorsName)
			if err != nil {
				return err
			}
			if err := export.CheckFinite(vectors); err != nil {
				return fmt.Errorf("%s: %w", vectorsPath, err)
			}
			index, err := loadTensor(dec, docidsPath, docidsName)
			if err != nil {
				return err
			}
			mapping, err := idmap.Load(mappingPath)
			if err != nil {
				return fmt.Errorf("load mapping: %w", err)
			}

			result, err := joinTensors(vectors, index, mapping)
			if err != nil {
				return err
			}
			if rows := vectors.Shape[0]; rows != len(result.DocIDs) {
				log.Warn("vector rows and doc ids differ", "rows", rows, "docids", len(result.DocIDs))
			}

			comp, err := resolveCompression("", out)
			if err != nil {
				return err
			}
			w, err := openOutput(cmd, out, comp)
			if err != nil {
				return err
			}
			if err := json.NewEncoder(w).Encode(result); err != nil {
				_ = w.Close()
				return fmt.Errorf("write %s: %w", out, err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			log.Info("joined", "vectors", vectorsPath, "docids", len(result.DocIDs), "out", out)
			return nil
		},
	}
}

// loadTensor decodes the single tensor name from the container at path.
func loadTensor(dec *safetensors.Decoder, path, name string) (*safetensors.Tensor, error) {
	buf, err := source.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = buf.Close() }()

	h, err := dec.ParseHeader(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d, ok, err := h.Descriptor(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", path, safetensors.ErrTensorNotFound, name)
	}
	t, err := dec.Extract(h.DataRegion(buf.Bytes()), d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func joinTensors(vectors, index *safetensors.Tensor, mapping *idmap.Map) (joined, error) {
	indices, err := idmap.IndicesOf(index)
	if err != nil {
		return joined{}, err
	}
	ids, err := mapping.Resolve(indices)
	if err != nil {
		return joined{}, err
	}
	return joined{Vectors: vectors.Nested(), DocIDs: ids}, nil
}
