package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/records_service/internal/app/domain/record"
	"github.com/R3E-Network/records_service/internal/httputil"
)

func newClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Call a running instance",
	}
	cmd.PersistentFlags().String("server", "http://localhost:8080", "base URL of the records service")
	cmd.PersistentFlags().Duration("timeout", 10*time.Second, "request timeout")

	list := &cobra.Command{
		Use:   "list",
		Short: "List all records",
		Args:  cobra.NoArgs,
		RunE:  runClientList,
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch one record",
		Args:  cobra.ExactArgs(1),
		RunE:  runClientGet,
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a record",
		Args:  cobra.NoArgs,
		RunE:  runClientCreate,
	}
	create.Flags().String("name", "", "record name")
	create.Flags().String("email", "", "record email")
	create.Flags().String("password", "", "record password")

	cmd.AddCommand(list, get, create)
	return cmd
}

func newAPIClient(cmd *cobra.Command) *httputil.Client {
	server, _ := cmd.Flags().GetString("server")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return httputil.NewClient(httputil.ClientConfig{BaseURL: server, Timeout: timeout})
}

func runClientList(cmd *cobra.Command, _ []string) error {
	resp, err := newAPIClient(cmd).Get(cmd.Context(), "/records")
	if err != nil {
		return err
	}
	var items []record.Record
	if err := httputil.DecodeResponse(resp, &items); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), items)
}

func runClientGet(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("id must be an integer: %q", args[0])
	}
	resp, err := newAPIClient(cmd).Get(cmd.Context(), "/records/"+strconv.FormatInt(id, 10))
	if err != nil {
		return err
	}
	var rec record.Record
	if err := httputil.DecodeResponse(resp, &rec); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), rec)
}

func runClientCreate(cmd *cobra.Command, _ []string) error {
	body := map[string]string{}
	for _, field := range []string{"name", "email", "password"} {
		if cmd.Flags().Changed(field) {
			v, _ := cmd.Flags().GetString(field)
			body[field] = v
		}
	}
	resp, err := newAPIClient(cmd).Post(cmd.Context(), "/records", body)
	if err != nil {
		return err
	}
	var rec record.Record
	if err := httputil.DecodeResponse(resp, &rec); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), rec)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
