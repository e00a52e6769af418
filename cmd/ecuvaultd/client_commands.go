package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pushchain/ecu-vault/gateway/api"
	"github.com/pushchain/ecu-vault/gateway/eventstore"
	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

func clientFrom(v *viper.Viper) *apiClient {
	return newAPIClient(v.GetString(flagAPI))
}

func emit(cmd *cobra.Command, v *viper.Viper, data any) error {
	return printOutput(cmd.OutOrStdout(), data, v.GetString(flagOutput))
}

func parseID(arg string) (uint64, error) {
	id, err := cast.ToUint64E(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func encryptCmd(v *viper.Viper) *cobra.Command {
	var valueType string

	cmd := &cobra.Command{
		Use:   "encrypt [value]",
		Short: "Encrypt a plaintext with the gateway coprocessor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out api.HandleResponse
			req := api.EncryptRequest{Type: valueType, Value: args[0]}
			if err := clientFrom(v).do(cmd.Context(), http.MethodPost, "/api/v1/fhe/encrypt", req, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}

	cmd.Flags().StringVar(&valueType, "type", "string", "plaintext type (string|uint64)")
	return cmd
}

func messagesCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "messages",
		Aliases: []string{"msg"},
		Short:   "Encrypted message commands",
	}

	submit := &cobra.Command{
		Use:   "submit [command] [source] [target]",
		Short: "Encrypt three plaintexts and submit them as a message",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := clientFrom(v)
			handles := make([]types.Handle, 3)
			for i, plaintext := range args {
				var out api.HandleResponse
				req := api.EncryptRequest{Type: "string", Value: plaintext}
				if err := c.do(cmd.Context(), http.MethodPost, "/api/v1/fhe/encrypt", req, &out); err != nil {
					return err
				}
				handles[i] = out.Handle
			}

			var out api.IDResponse
			req := api.SubmitMessageRequest{Command: handles[0], Source: handles[1], Target: handles[2]}
			if err := c.do(cmd.Context(), http.MethodPost, "/api/v1/messages", req, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}

	submitHandles := &cobra.Command{
		Use:   "submit-handles [command] [source] [target]",
		Short: "Submit a message from existing ciphertext handles",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req api.SubmitMessageRequest
			for i, dst := range []*types.Handle{&req.Command, &req.Source, &req.Target} {
				h, err := types.HandleFromHex(args[i])
				if err != nil {
					return fmt.Errorf("handle %d: %w", i+1, err)
				}
				*dst = h
			}
			var out api.IDResponse
			if err := clientFrom(v).do(cmd.Context(), http.MethodPost, "/api/v1/messages", req, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}

	verify := &cobra.Command{
		Use:   "verify [id]",
		Short: "Request oracle verification of a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var out api.RequestIDResponse
			if err := clientFrom(v).do(cmd.Context(), http.MethodPost, fmt.Sprintf("/api/v1/messages/%d/verify", id), nil, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}

	show := &cobra.Command{
		Use:   "show [id]",
		Short: "Show an encrypted message and its status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var out api.MessageResponse
			if err := clientFrom(v).do(cmd.Context(), http.MethodGet, fmt.Sprintf("/api/v1/messages/%d", id), nil, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}

	decrypted := &cobra.Command{
		Use:   "decrypted [id]",
		Short: "Show the decrypted record of a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var out api.DecryptedMessageResponse
			if err := clientFrom(v).do(cmd.Context(), http.MethodGet, fmt.Sprintf("/api/v1/messages/%d/decrypted", id), nil, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}

	count := &cobra.Command{
		Use:   "count",
		Short: "Show the number of submitted messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out api.CountResponse
			if err := clientFrom(v).do(cmd.Context(), http.MethodGet, "/api/v1/messages/count", nil, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recent messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []types.EncryptedMessage
			if err := clientFrom(v).do(cmd.Context(), http.MethodGet, fmt.Sprintf("/api/v1/messages?limit=%d", limit), nil, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of messages")

	cmd.AddCommand(submit, submitHandles, verify, show, decrypted, count, list)
	return cmd
}

func ecusCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ecus",
		Short: "List ECUs with their encrypted counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []api.EcuResponse
			if err := clientFrom(v).do(cmd.Context(), http.MethodGet, "/api/v1/ecus", nil, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}

	reveal := &cobra.Command{
		Use:   "reveal [ecu]",
		Short: "Request decryption of an ECU's message counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out api.RequestIDResponse
			path := "/api/v1/ecus/" + url.PathEscape(args[0]) + "/reveal"
			if err := clientFrom(v).do(cmd.Context(), http.MethodPost, path, nil, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}

	trust := &cobra.Command{
		Use:   "trust-score [ecu]",
		Short: "Show the share of an ECU's verified messages with valid commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out api.TrustScoreResponse
			path := "/api/v1/ecus/" + url.PathEscape(args[0]) + "/trust-score"
			if err := clientFrom(v).do(cmd.Context(), http.MethodGet, path, nil, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}

	cmd.AddCommand(reveal, trust)
	return cmd
}

func analyticsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Command analytics over verified messages",
	}

	anomalies := &cobra.Command{
		Use:   "anomalies",
		Short: "List verified messages whose command is not known-safe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out api.AnomaliesResponse
			if err := clientFrom(v).do(cmd.Context(), http.MethodGet, "/api/v1/analytics/anomalies", nil, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}

	pairs := &cobra.Command{
		Use:   "suspicious-pairs",
		Short: "List ECU pairs that exchanged unsafe commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out api.SuspiciousPairsResponse
			if err := clientFrom(v).do(cmd.Context(), http.MethodGet, "/api/v1/analytics/suspicious-pairs", nil, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}

	safe := &cobra.Command{
		Use:   "safe-commands",
		Short: "List known-safe commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out api.SafeCommandsResponse
			if err := clientFrom(v).do(cmd.Context(), http.MethodGet, "/api/v1/safe-commands", nil, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}

	addSafe := &cobra.Command{
		Use:   "add-safe-command [command]",
		Short: "Add a command to the known-safe registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.SafeCommandRequest{Command: args[0]}
			if err := clientFrom(v).do(cmd.Context(), http.MethodPost, "/api/v1/safe-commands", req, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %q\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(anomalies, pairs, safe, addSafe)
	return cmd
}

func kvCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kv",
		Short: "Ledger key-value storage",
	}

	get := &cobra.Command{
		Use:   "get [key]",
		Short: "Print a stored value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := clientFrom(v).GetData(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(value, '\n'))
			return err
		},
	}

	set := &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Store a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return clientFrom(v).SetData(cmd.Context(), args[0], []byte(args[1]))
		},
	}

	available := &cobra.Command{
		Use:   "available",
		Short: "Check whether the store accepts requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return emit(cmd, v, api.AvailabilityResponse{Available: clientFrom(v).IsAvailable(cmd.Context())})
		},
	}

	cmd.AddCommand(get, set, available)
	return cmd
}

func requestCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "request [id]",
		Short: "Show an oracle decryption request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var out api.DecryptionRequestResponse
			if err := clientFrom(v).do(cmd.Context(), http.MethodGet, fmt.Sprintf("/api/v1/requests/%d", id), nil, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}
}

func eventsCmd(v *viper.Viper) *cobra.Command {
	var (
		eventType string
		messageID uint64
		ecu       string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List ledger events recorded by the node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if eventType != "" {
				q.Set("type", eventType)
			}
			if messageID != 0 {
				q.Set("message_id", cast.ToString(messageID))
			}
			if ecu != "" {
				q.Set("ecu", ecu)
			}
			q.Set("limit", cast.ToString(limit))

			var out []eventstore.Record
			if err := clientFrom(v).do(cmd.Context(), http.MethodGet, "/api/v1/events?"+q.Encode(), nil, &out); err != nil {
				return err
			}
			return emit(cmd, v, out)
		},
	}

	cmd.Flags().StringVar(&eventType, "type", "", "event type, e.g. "+strings.Join([]string{
		types.EventTypeMessageVerified, types.EventTypeAggregateRevealed,
	}, ", "))
	cmd.Flags().Uint64Var(&messageID, "message-id", 0, "only events about this message")
	cmd.Flags().StringVar(&ecu, "ecu", "", "only events about this ECU")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of events")
	return cmd
}
