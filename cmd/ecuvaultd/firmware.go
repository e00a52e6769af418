package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pushchain/ecu-vault/firmware"
)

// firmwareCmd manages firmware records directly in the ledger's key-value store, reading
// and writing the index and record blobs through the node's kv endpoints.
func firmwareCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "firmware",
		Aliases: []string{"fw"},
		Short:   "Firmware review registry",
	}

	registry := func(cmd *cobra.Command) *firmware.Registry {
		log := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(zerolog.WarnLevel)
		return firmware.NewRegistry(clientFrom(v), log)
	}

	var req firmware.UploadRequest
	upload := &cobra.Command{
		Use:   "upload",
		Short: "Register a firmware image for review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := registry(cmd).Upload(cmd.Context(), req)
			if err != nil {
				return err
			}
			return emit(cmd, v, rec)
		},
	}
	upload.Flags().StringVar(&req.Name, "name", "", "firmware name")
	upload.Flags().StringVar(&req.Ecu, "ecu", "", "target ECU")
	upload.Flags().StringVar(&req.Version, "version", "", "firmware version")
	upload.Flags().StringVar(&req.ImageHash, "image-hash", "", "0x-prefixed image digest")
	upload.Flags().StringVar(&req.Uploader, "uploader", "", "uploader identity")
	_ = upload.MarkFlagRequired("name")
	_ = upload.MarkFlagRequired("ecu")

	var filter firmware.Filter
	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List firmware records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Status = firmware.Status(status)
			page, err := registry(cmd).List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return emit(cmd, v, page)
		},
	}
	list.Flags().StringVar(&status, "status", "", "pending|verified|rejected")
	list.Flags().StringVar(&filter.Query, "query", "", "substring match on id, name, ecu, version or uploader")
	list.Flags().IntVar(&filter.Page, "page", 1, "page number")
	list.Flags().IntVar(&filter.PageSize, "page-size", firmware.DefaultPageSize, "records per page")

	show := &cobra.Command{
		Use:   "show [id]",
		Short: "Show one firmware record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := registry(cmd).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return emit(cmd, v, rec)
		},
	}

	verify := &cobra.Command{
		Use:   "verify [id]",
		Short: "Mark a pending record verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := registry(cmd).MarkVerified(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return emit(cmd, v, rec)
		},
	}

	reject := &cobra.Command{
		Use:   "reject [id]",
		Short: "Mark a pending record rejected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := registry(cmd).MarkRejected(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return emit(cmd, v, rec)
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count records per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := registry(cmd).Stats(cmd.Context())
			if err != nil {
				return err
			}
			return emit(cmd, v, s)
		},
	}

	cmd.AddCommand(upload, list, show, verify, reject, stats)
	return cmd
}
