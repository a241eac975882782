package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/nuln/jobfs"
)

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "jobfs",
		Short:         "Access files on local and distributed storage by address",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./jobfs.yaml)")
	flags.StringVarP(&a.endpoint, "endpoint", "e", "", "named endpoint from the config; arguments become paths below it")
	flags.StringVarP(&a.user, "user", "u", "", "user to connect as")
	flags.StringVar(&a.password, "password", "", "password to connect with")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")

	root.AddCommand(
		newListCommand(a),
		newGlobCommand(a),
		newCatCommand(a),
		newPutCommand(a),
		newRemoveCommand(a),
		newMkdirCommand(a),
		newMoveCommand(a),
		newCopyCommand(a),
		newHashCommand(a),
	)
	return root
}

func printEntries(out io.Writer, entries []jobfs.FileInfo) {
	for _, fi := range entries {
		fmt.Fprintf(out, "%c %12d %s\n", fi.Kind, fi.Size, fi.Name)
	}
}

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls ADDRESS",
		Short: "List the entries of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, out io.Writer, args []string) error {
			b, p, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			entries, err := b.List(ctx, p)
			if err != nil {
				return err
			}
			printEntries(out, entries)
			return nil
		}),
	}
}

func newGlobCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "glob PATTERN",
		Short: "List the entries matching a pattern ('*' any run, '?' one character)",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, out io.Writer, args []string) error {
			b, pattern, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			entries, err := b.Glob(ctx, pattern)
			if err != nil {
				return err
			}
			printEntries(out, entries)
			return nil
		}),
	}
}

func newCatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat ADDRESS",
		Short: "Write a file to standard output",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, out io.Writer, args []string) error {
			b, p, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			f, err := b.Open(ctx, p, jobfs.ReadMode)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			_, err = io.Copy(out, f)
			return err
		}),
	}
}

func newPutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put LOCAL_FILE ADDRESS",
		Short: "Upload a local file ('-' for standard input)",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, out io.Writer, args []string) error {
			src := a.in
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				src = f
			}

			b, p, err := a.resolve(ctx, args[1])
			if err != nil {
				return err
			}
			return writeTo(ctx, b, p, src)
		}),
	}
}

// writeTo creates p on b with the content of src.
func writeTo(ctx context.Context, b jobfs.Backend, p string, src io.Reader) (err error) {
	dst, err := b.Open(ctx, p, jobfs.WriteMode)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dst.Close()) }()

	_, err = io.Copy(dst, src)
	return err
}

func newRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ADDRESS...",
		Short: "Remove files or directories with their contents",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(ctx context.Context, out io.Writer, args []string) error {
			for _, arg := range args {
				b, p, err := a.resolve(ctx, arg)
				if err != nil {
					return err
				}
				if err := b.Remove(ctx, p); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}

func newMkdirCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir ADDRESS...",
		Short: "Create directories and their parents",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(ctx context.Context, out io.Writer, args []string) error {
			for _, arg := range args {
				b, p, err := a.resolve(ctx, arg)
				if err != nil {
					return err
				}
				if err := b.Mkdirs(ctx, p); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}

func newMoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv SOURCE TARGET",
		Short: "Rename a file or directory on one backend",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, out io.Writer, args []string) error {
			src, srcPath, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			dst, dstPath, err := a.resolve(ctx, args[1])
			if err != nil {
				return err
			}
			if src != dst {
				return fmt.Errorf("mv between backends: %w", jobfs.ErrNotSupported)
			}
			return src.Rename(ctx, srcPath, dstPath)
		}),
	}
}

func newCopyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cp SOURCE TARGET",
		Short: "Copy a file, server-side when the backend supports it",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(ctx context.Context, out io.Writer, args []string) error {
			src, srcPath, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			dst, dstPath, err := a.resolve(ctx, args[1])
			if err != nil {
				return err
			}
			if c, ok := src.(jobfs.Copier); ok && src == dst {
				return c.Copy(ctx, srcPath, dstPath)
			}

			f, err := src.Open(ctx, srcPath, jobfs.ReadMode)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			return writeTo(ctx, dst, dstPath, f)
		}),
	}
}

func newHashCommand(a *app) *cobra.Command {
	var algorithm string
	cmd := &cobra.Command{
		Use:   "hash ADDRESS",
		Short: "Print the hash of a file",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, out io.Writer, args []string) error {
			b, p, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			h, ok := b.(jobfs.Hasher)
			if !ok {
				return fmt.Errorf("hash: %w", jobfs.ErrNotSupported)
			}
			sum, err := h.Hash(ctx, p, algorithm)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s  %s\n", sum, args[0])
			return nil
		}),
	}
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "md5", "hash algorithm (md5, sha256)")
	return cmd
}
