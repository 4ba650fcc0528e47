package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/chatmerge/internal/queue"
)

func queueCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show or edit the queue of sources to merge",
	}

	cmd.AddCommand(queueShowCmd(opts))
	cmd.AddCommand(queueAddCmd(opts))
	cmd.AddCommand(queueRemoveCmd(opts))
	cmd.AddCommand(queueClearCmd(opts))
	cmd.AddCommand(queueFilterCmd(opts))
	return cmd
}

func queueShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the queued sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := queue.Load(opts.queuePath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(q.Sources) == 0 {
				fmt.Fprintln(out, "queue is empty")
			}
			for _, line := range q.Lines() {
				fmt.Fprintln(out, line)
			}
			if len(q.Users) > 0 {
				fmt.Fprintf(out, "users: %s\n", strings.Join(q.Users, ", "))
			}
			return nil
		},
	}
}

func queueAddCmd(opts *rootOptions) *cobra.Command {
	var layout string
	var header bool

	cmd := &cobra.Command{
		Use:   "add LOCATOR CHANNEL",
		Short: "Queue a source under a channel name",
		Long: `LOCATOR is a local path, a ~/ path or dropbox:/path. Every record read
from it is labeled with CHANNEL.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editQueue(opts.queuePath, func(q *queue.Queue) error {
				if err := q.Add(queue.Entry{
					Locator: args[0],
					Channel: args[1],
					Layout:  strings.ToLower(layout),
					Header:  header,
				}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", q.Lines()[len(q.Sources)-1])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&layout, "layout", "", "Column layout: auto, four or five")
	cmd.Flags().BoolVar(&header, "header", false, "The file starts with a header row")
	return cmd
}

func queueRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove N",
		Short: "Remove the N-th queued source (as numbered by 'queue show')",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid entry number %q", args[0])
			}
			return editQueue(opts.queuePath, func(q *queue.Queue) error {
				e, err := q.Remove(n)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s - %s\n", e.Channel, e.Locator)
				return nil
			})
		},
	}
}

func queueClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every queued source and the user filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editQueue(opts.queuePath, func(q *queue.Queue) error {
				q.Clear()
				fmt.Fprintln(cmd.OutOrStdout(), "queue cleared")
				return nil
			})
		},
	}
}

func queueFilterCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "filter [USER...]",
		Short: "Set the default user filter; no arguments selects everyone",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editQueue(opts.queuePath, func(q *queue.Queue) error {
				q.Users = nil
				for _, a := range args {
					q.Users = append(q.Users, splitUsers(a)...)
				}
				if len(q.Users) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "filter cleared")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "users: %s\n", strings.Join(q.Users, ", "))
				return nil
			})
		},
	}
}

// editQueue loads the queue, applies fn and saves it when fn succeeds.
func editQueue(path string, fn func(q *queue.Queue) error) error {
	q, err := queue.Load(path)
	if err != nil {
		return err
	}
	if err := fn(q); err != nil {
		return err
	}
	return q.Save(path)
}

func splitUsers(s string) []string {
	var out []string
	for _, u := range strings.Split(s, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
