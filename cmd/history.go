package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// HistoryCmd represents the history command and its subcommands
type HistoryCmd struct {
	List   HistoryListCmd   `cmd:"" default:"1" help:"List recent searches"`
	Remove HistoryRemoveCmd `cmd:"" help:"Forget one recent search"`
	Clear  HistoryClearCmd  `cmd:"" help:"Forget all recent searches"`
}

// HistoryListCmd prints recent searches, most recent first
type HistoryListCmd struct{}

func (h *HistoryListCmd) Run() error {
	a, err := openApp(viper.GetViper())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	terms := a.history.List()
	if len(terms) == 0 {
		_, _ = fmt.Fprintln(stdout, "No recent searches.")
		return nil
	}
	for _, term := range terms {
		_, _ = fmt.Fprintln(stdout, term)
	}
	return nil
}

// HistoryRemoveCmd removes one term
type HistoryRemoveCmd struct {
	Term []string `arg:"" help:"Search term to forget"`
}

func (h *HistoryRemoveCmd) Run() error {
	a, err := openApp(viper.GetViper())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return a.history.Remove(strings.Join(h.Term, " "))
}

// HistoryClearCmd removes every term
type HistoryClearCmd struct{}

func (h *HistoryClearCmd) Run() error {
	a, err := openApp(viper.GetViper())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return a.history.Clear()
}
