package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Amit-aeonx/po-agent/catalog"
	"github.com/Amit-aeonx/po-agent/dialogue"
	"github.com/Amit-aeonx/po-agent/nlu"
	"github.com/Amit-aeonx/po-agent/order"
	"github.com/Amit-aeonx/po-agent/session"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	setupLogger(cfg)
	if err := run(context.Background(), cfg); err != nil {
		log.Fatal().Err(err).Msg("agent stopped")
	}
}

func setupLogger(cfg *Config) {
	level := zerolog.InfoLevel
	if cfg.AppEnv == "development" {
		level = zerolog.DebugLevel
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	zerolog.SetGlobalLevel(level)
}

func run(ctx context.Context, cfg *Config) error {
	analyzer, err := buildAnalyzer(ctx, cfg)
	if err != nil {
		return err
	}

	client := catalog.NewHTTPClient(cfg.BackendBaseURL, cfg.BackendToken, cfg.SessionKey,
		catalog.WithTimeout(cfg.RequestTimeout),
		catalog.WithLogger(log.Logger))

	engine := dialogue.New(analyzer, client, dialogue.WithLogger(log.Logger))
	store := buildStore(cfg)

	sessionID := uuid.NewString()
	ctx = session.WithSessionID(ctx, sessionID)
	log.Info().Str("session_id", sessionID).Msg("session started")

	fmt.Println("PO assistant ready. Say \"create PO\" to begin, or ctrl-d to quit.")
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		state, err := store.Load(ctx)
		if err != nil {
			return err
		}
		reply, err := engine.Turn(ctx, state, line)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			fmt.Println("Something went wrong, please try again.")
			continue
		}
		if err := store.Save(ctx, state); err != nil {
			return err
		}
		fmt.Println(reply)
		if state.Step == order.StepDone {
			log.Info().Msg("purchase order flow finished")
		}
	}
}

func buildAnalyzer(ctx context.Context, cfg *Config) (nlu.Analyzer, error) {
	keyword := nlu.NewKeywordAnalyzer()
	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set, falling back to keyword analysis only")
		return keyword, nil
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	tool, err := nlu.NewToolAnalyzer(chatModel)
	if err != nil {
		return nil, fmt.Errorf("create tool analyzer: %w", err)
	}
	return nlu.NewFallbackAnalyzer(tool, keyword), nil
}

func buildStore(cfg *Config) *session.ConversationStore {
	if cfg.RedisAddr == "" {
		return session.NewConversationStore(session.NewMemoryCache[*order.ConversationState](), "po-agent")
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	cache := session.NewRedisCache[*order.ConversationState](rdb, 24*time.Hour)
	return session.NewConversationStore(cache, "po-agent")
}
