package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/repl"
)

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the answer with its sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			asker, err := a.services.Asker(ctx)
			if err != nil {
				return err
			}
			conv := domain.NewConversation(a.cfg.Chat.SystemPrompt)
			ans, err := asker.Ask(ctx, conv, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printAnswer(cmd.OutOrStdout(), ans)
			return nil
		},
	}
}

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive question and answer session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			asker, err := a.services.Asker(ctx)
			if err != nil {
				return err
			}
			conv := domain.NewConversation(a.cfg.Chat.SystemPrompt)
			session := repl.New(asker, conv, cmd.InOrStdin(), cmd.OutOrStdout(), chatSettings(a), a.logger)
			return session.Run(ctx)
		},
	}
}

// chatSettings lists what the settings command of the chat session shows.
func chatSettings(a *app) []repl.Setting {
	c := a.cfg
	retrieval := "disabled"
	if c.RetrievalEnabled() {
		retrieval = fmt.Sprintf("%s, top %d, strictness %d", c.Retrieval.QueryType, c.Retrieval.TopN, c.Retrieval.Strictness)
	}
	endpoint := c.Embedding.BaseURL
	if endpoint == "" {
		endpoint = "api.openai.com"
	}
	return []repl.Setting{
		{Name: "Model endpoint", Value: endpoint},
		{Name: "API version", Value: c.Embedding.APIVersion},
		{Name: "Chat model", Value: c.Chat.Deployment},
		{Name: "Embedding model", Value: c.Embedding.Deployment},
		{Name: "Search index", Value: c.Search.IndexName + " @ " + strings.Join(c.Search.Addrs, ",")},
		{Name: "Retrieval", Value: retrieval},
		{Name: "Temperature", Value: strconv.FormatFloat(float64(c.Chat.Temperature()), 'g', -1, 32)},
		{Name: "Max tokens", Value: strconv.Itoa(c.Chat.MaxTokens)},
	}
}
