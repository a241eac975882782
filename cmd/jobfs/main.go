// Command jobfs lists, reads and writes files on any jobfs backend.
//
//	jobfs ls hdfs://namenode:8020/jobs/42
//	jobfs cat file:///var/log/job.log
//	jobfs --endpoint warehouse glob 'jobs/*/part-?????'
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "jobfs:", err)
		stop()
		os.Exit(1)
	}
}
