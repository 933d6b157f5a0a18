// Package export bundles processed case records into a zstd-compressed ZIP
// archive for offline analysis. Standard unzip tools that understand ZIP
// method 93 (Zstandard) can read the output.
package export

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/fpang/case-insights/internal/casestore"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard.
const zipMethodZstd uint16 = 93

func init() {
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
	})
}

// Exporter writes processed cases into archives.
type Exporter struct {
	Store casestore.Store
}

// WriteArchive bundles every processed case for the given accounts into a
// zstd ZIP written to w. An empty accounts slice exports all accounts with
// raw records. Returns the number of cases written.
func (e *Exporter) WriteArchive(ctx context.Context, w io.Writer, accounts []string) (int, error) {
	if len(accounts) == 0 {
		var err error
		accounts, err = e.Store.ListRawAccounts(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list accounts: %w", err)
		}
	}

	zw := zip.NewWriter(w)
	count := 0
	for _, accountID := range accounts {
		processed, err := e.Store.ListProcessedCaseIDs(ctx, accountID)
		if err != nil {
			return count, fmt.Errorf("failed to list processed cases for %s: %w", accountID, err)
		}

		for caseID := range processed {
			key := casestore.Key{AccountID: accountID, CaseID: caseID}
			pc, err := e.Store.GetProcessed(ctx, key)
			if err != nil {
				return count, fmt.Errorf("failed to read case %s/%s: %w", accountID, caseID, err)
			}
			if pc == nil {
				continue
			}

			body, err := json.MarshalIndent(pc, "", "  ")
			if err != nil {
				return count, fmt.Errorf("failed to marshal case %s/%s: %w", accountID, caseID, err)
			}

			entry, err := zw.CreateHeader(&zip.FileHeader{
				Name:   casestore.DataKey(key),
				Method: zipMethodZstd,
			})
			if err != nil {
				return count, fmt.Errorf("failed to create archive entry: %w", err)
			}
			if _, err := entry.Write(body); err != nil {
				return count, fmt.Errorf("failed to write archive entry: %w", err)
			}
			count++
		}
	}

	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("failed to finalize archive: %w", err)
	}

	log.Info().Int("cases", count).Int("accounts", len(accounts)).Msg("Export archive written")
	return count, nil
}
