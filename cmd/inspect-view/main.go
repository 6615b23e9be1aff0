package main

import (
	"context"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/e2b-dev/memview/internal/cfg"
	"github.com/e2b-dev/memview/pkg/logger"
)

func main() {
	path := flag.String("path", "", "local file path or gs://bucket/object, s3://bucket/key URL")
	mode := flag.String("mode", modeMmap, "'mmap' or 'stream' (local files only)")
	fieldLayout := flag.String("layout", "", "comma separated fields to unpack, e.g. u32,i16,[4]u8,f64")
	offset := flag.Int64("offset", 0, "byte offset of the inspected range")
	length := flag.Int64("length", 0, "byte length of the inspected range (0 means until the end)")
	blockSize := flag.Int64("block", 4096, "block size used to summarize the bytes after the fields")

	flag.Parse()

	config, err := cfg.Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %s", err)
	}

	ctx := context.Background()

	l, err := logger.NewLogger(ctx, logger.LoggerConfig{
		ServiceName: config.ServiceName,
		IsDebug:     config.Debug,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		log.Fatalf("failed to create logger: %s", err)
	}
	defer l.Sync()

	zap.ReplaceGlobals(l)

	err = run(ctx, config, options{
		path:      *path,
		mode:      *mode,
		layout:    *fieldLayout,
		offset:    *offset,
		length:    *length,
		blockSize: *blockSize,
	}, os.Stdout)
	if err != nil {
		l.Error("inspection failed", zap.Error(err))
		l.Sync()
		os.Exit(1)
	}
}
