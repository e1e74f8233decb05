package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/haneiva1/autoventas/engine/catalog"
	contractx "github.com/haneiva1/autoventas/engine/contract"
	"github.com/haneiva1/autoventas/engine/pipeline"
	promptx "github.com/haneiva1/autoventas/engine/prompt"
	proposerx "github.com/haneiva1/autoventas/engine/proposer"
	statex "github.com/haneiva1/autoventas/engine/state"
	configx "github.com/haneiva1/autoventas/pkg/config"
	_ "github.com/haneiva1/autoventas/pkg/logger/autoload"
	openrouterx "github.com/haneiva1/autoventas/pkg/openrouter"
	qstashx "github.com/haneiva1/autoventas/pkg/qstash"
)

func main() {
	conversationID := flag.String("conversation", "", "conversation id")
	tenantID := flag.String("tenant", "default", "tenant id")
	message := flag.String("message", "", "customer message")
	replyURL := flag.String("reply-url", "", "optional delivery endpoint for the reply")
	flag.Parse()

	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	openRouterClient, err := openrouterx.NewClient(*openRouterCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize openrouter client")
	}

	prompts := promptx.LoadPromptSet()
	generator, err := proposerx.New(openRouterClient, *openRouterCfg, prompts.Assistant)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize proposal generator")
	}

	redisCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	store, err := statex.NewUpstashRedisStore(*redisCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize conversation store")
	}

	pgCfg := configx.MustNew[catalog.Config]("POSTGRES")
	pgStore, err := catalog.NewPostgresStore(*pgCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize catalog store")
	}
	defer pgStore.Close()

	engine, err := pipeline.New(store, pgStore, pgStore, pgStore, generator, pipeline.Config{
		ChannelType: "whatsapp",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("initialize engine")
	}

	if *conversationID == "" || *message == "" {
		log.Info().Msg("engine ready; pass -conversation and -message to process one message")
		return
	}

	ctx := context.Background()
	result, err := engine.ProcessMessage(ctx, contractx.ProcessRequest{
		ConversationID:  *conversationID,
		TenantID:        *tenantID,
		CustomerMessage: *message,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("process message")
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("encode result")
	}
	fmt.Println(string(out))

	if *replyURL != "" && result.Handled && result.ResponseText != "" {
		publishReply(ctx, *conversationID, *replyURL, result)
	}
}

func publishReply(ctx context.Context, conversationID, replyURL string, result contractx.ProcessResult) {
	qstashCfg, err := configx.New[qstashx.Config]("QSTASH")
	if err != nil {
		log.Warn().Err(err).Msg("qstash not configured, skipping delivery")
		return
	}
	client, err := qstashx.NewClient(*qstashCfg)
	if err != nil {
		log.Warn().Err(err).Msg("qstash client init failed, skipping delivery")
		return
	}

	body, err := json.Marshal(map[string]string{
		"conversation_id": conversationID,
		"text":            result.ResponseText,
	})
	if err != nil {
		log.Warn().Err(err).Msg("encode reply payload")
		return
	}

	dedupID := fmt.Sprintf("%s:%x", conversationID, len(result.ExecutedActions))
	if err := client.Publish(ctx, replyURL, body, dedupID); err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("publish reply")
		return
	}
	log.Info().Str("conversation_id", conversationID).Msg("reply published")
}
