package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/s3types"
)

func (a *app) newSizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "size BUCKET KEY",
		Short: "Print an object's size in bytes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd.Context(), a.role)
			if err != nil {
				return err
			}
			size, err := client.GetObjectSize(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, size)
			return nil
		},
	}
}

func (a *app) newGlacierCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "glacier BUCKET KEY",
		Short: "Print an object's storage class and restore state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd.Context(), a.role)
			if err != nil {
				return err
			}
			meta, err := client.GetGlacierMetadata(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			expiry := "-"
			if meta.RestoreExpiry != nil {
				expiry = meta.RestoreExpiry.Format(time.RFC3339)
			}
			fmt.Fprintf(a.out, "size: %d\n", meta.Size)
			fmt.Fprintf(a.out, "storage_class: %s\n", meta.StorageClass)
			fmt.Fprintf(a.out, "restore_ongoing: %t\n", meta.RestoreOngoing)
			fmt.Fprintf(a.out, "restore_expiry: %s\n", expiry)
			return nil
		},
	}
}

func (a *app) newListCommand() *cobra.Command {
	var (
		fields     []string
		pageSize   int32
		startAfter string
	)

	cmd := &cobra.Command{
		Use:   "list BUCKET [PREFIX]",
		Short: "List objects under a prefix, one tab-separated row per object",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 2 {
				prefix = args[1]
			}

			requested := make([]s3types.ObjectField, 0, len(fields))
			for _, f := range fields {
				requested = append(requested, s3types.ObjectField(strings.TrimSpace(f)))
			}

			client, err := a.client(cmd.Context(), a.role)
			if err != nil {
				return err
			}

			opts := []s3types.ListOption{s3role.WithMaxKeys(pageSize)}
			if startAfter != "" {
				opts = append(opts, s3role.WithStartAfter(startAfter))
			}
			rows, err := client.ListObjects(cmd.Context(), args[0], prefix, requested, opts...)
			if err != nil {
				return err
			}

			for _, row := range rows {
				cells := make([]string, len(row))
				for i, v := range row {
					cells[i] = formatCell(v)
				}
				fmt.Fprintln(a.out, strings.Join(cells, "\t"))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&fields, "fields", []string{string(s3types.FieldKey), string(s3types.FieldSize)},
		"object fields to print: Key, Size, LastModified, ETag, StorageClass")
	cmd.Flags().Int32Var(&pageSize, "page-size", 1000, "keys requested per page (1-1000)")
	cmd.Flags().StringVar(&startAfter, "start-after", "", "list keys after this one")
	return cmd
}

func (a *app) newGetCommand() *cobra.Command {
	var (
		rangeSpec string
		out       string
	)

	cmd := &cobra.Command{
		Use:   "get BUCKET KEY",
		Short: "Download an object to a file or stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd.Context(), a.role)
			if err != nil {
				return err
			}

			var opts []s3types.DownloadOption
			if rangeSpec != "" {
				opts = append(opts, s3role.WithRange(rangeSpec))
			}

			if out == "" || out == "-" {
				data, err := client.Get(cmd.Context(), args[0], args[1], opts...)
				if err != nil {
					return err
				}
				_, err = a.out.Write(data)
				return err
			}

			result, err := client.DownloadFile(cmd.Context(), args[0], args[1], out, opts...)
			if err != nil {
				return err
			}
			a.logger.InfoContext(cmd.Context(), "object saved",
				"bucket", args[0],
				"key", args[1],
				"path", out,
				"size", result.Size,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&rangeSpec, "range", "", "HTTP byte range, e.g. bytes=0-1023")
	cmd.Flags().StringVarP(&out, "out", "o", "", "destination file (stdout when empty or -)")
	return cmd
}

func (a *app) newCopyCommand() *cobra.Command {
	var (
		srcRole     string
		dstRole     string
		rangeSpec   string
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "copy SRC_BUCKET SRC_KEY DST_BUCKET DST_KEY",
		Short: "Copy an object between accounts through a local temporary file",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if srcRole == "" {
				srcRole = a.role
			}
			if dstRole == "" {
				dstRole = a.role
			}

			src, err := a.client(cmd.Context(), srcRole)
			if err != nil {
				return fmt.Errorf("source client: %w", err)
			}
			dst, err := a.client(cmd.Context(), dstRole)
			if err != nil {
				return fmt.Errorf("destination client: %w", err)
			}

			var opts []s3types.CopyOption
			if rangeSpec != "" {
				opts = append(opts, s3role.WithCopyRange(rangeSpec))
			}
			if contentType != "" {
				opts = append(opts, s3role.WithCopyContentType(contentType))
			}

			result, err := s3role.CopyCrossAccount(cmd.Context(), src, args[0], args[1], dst, args[2], args[3], opts...)
			if err != nil {
				return err
			}
			a.logger.InfoContext(cmd.Context(), "object copied",
				"bucket", args[0],
				"key", args[1],
				"dst_bucket", args[2],
				"dst_key", args[3],
				"size", result.Upload.Size,
				"duration", result.Duration,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&srcRole, "src-role", "", "role used to read the source (defaults to --role)")
	cmd.Flags().StringVar(&dstRole, "dst-role", "", "role used to write the destination (defaults to --role)")
	cmd.Flags().StringVar(&rangeSpec, "range", "", "copy only this HTTP byte range")
	cmd.Flags().StringVar(&contentType, "content-type", "", "override the destination content type")
	return cmd
}

func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
