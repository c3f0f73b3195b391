package backup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/imedwei/backupdbtool/internal/utils"
)

const sevenZipBinary = "7z"

// SevenZip implements Archiver with the 7z command line tool: LZMA2
// compression with encrypted headers.
type SevenZip struct {
	timeout time.Duration
	run     ToolRunner
	logger  *slog.Logger
}

// NewSevenZip creates a new 7z archiver.
func NewSevenZip(timeout time.Duration, logger *slog.Logger) *SevenZip {
	return &SevenZip{
		timeout: timeout,
		run:     RunTool,
		logger:  logger.With("component", "archiver"),
	}
}

// CompressAndEncrypt implements Archiver.CompressAndEncrypt.
func (s *SevenZip) CompressAndEncrypt(ctx context.Context, dumpPath, password string) (string, error) {
	archivePath := utils.ArchivePath(dumpPath)

	s.logger.Info("Compressing dump", "dump", dumpPath, "archive", archivePath)

	_, err := s.run(ctx, ToolSpec{
		Name: sevenZipBinary,
		Args: []string{
			"a",
			"-t7z",
			"-m0=lzma2",
			"-mhe=on",
			"-p" + password,
			archivePath,
			dumpPath,
		},
		Timeout: s.timeout,
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", dumpPath, err)
	}

	return archivePath, nil
}
