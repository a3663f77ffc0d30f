package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MaksimIschenko/giga-gen-project/internal/generate"
	"github.com/MaksimIschenko/giga-gen-project/internal/infra"
	"github.com/MaksimIschenko/giga-gen-project/internal/providers/auth"
	"github.com/MaksimIschenko/giga-gen-project/internal/providers/gigachat"
	"github.com/MaksimIschenko/giga-gen-project/internal/providers/meshy"
	"github.com/MaksimIschenko/giga-gen-project/internal/storage"
)

func main() {
	var (
		promptFlag    string
		modeFlag      string
		styleFlag     string
		prefixFlag    string
		extensionFlag string
		noFewshotFlag bool
		timeoutFlag   time.Duration
	)

	flag.StringVar(&promptFlag, "prompt", "", "text description of the model to generate")
	flag.StringVar(&modeFlag, "mode", "lowpoly", "generation mode (lowpoly or realistic)")
	flag.StringVar(&styleFlag, "style", "", "extra style hint appended to the prompt")
	flag.StringVar(&prefixFlag, "prefix", "model", "stored file name prefix")
	flag.StringVar(&extensionFlag, "extension", ".fbx", "stored file extension (.fbx, .glb, .obj, .usdz)")
	flag.BoolVar(&noFewshotFlag, "no-fewshot", false, "skip the built-in example prompts")
	flag.DurationVar(&timeoutFlag, "timeout", 25*time.Minute, "overall generation deadline")
	flag.Parse()

	if strings.TrimSpace(promptFlag) == "" {
		fmt.Fprintln(os.Stderr, "-prompt is required")
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	svcOpts := generate.Options{Config: cfg, Logger: &logger}

	// Only the selected 3D provider is wired; the other credentials may be
	// absent.
	if strings.EqualFold(cfg.Model3DProvider, "meshy") {
		token, err := auth.NewStaticToken(cfg.MeshyAPIKey)
		if err != nil {
			exitWithError(err)
		}
		mesh, err := meshy.NewClient(meshy.Options{
			BaseURL:        cfg.MeshyBaseURL,
			Auth:           token,
			Logger:         &logger,
			RequestTimeout: cfg.ProviderCallTimeout,
			PollInterval:   cfg.MeshyPollInterval,
			PreviewBudget:  cfg.MeshyPreviewBudget,
			RefineBudget:   cfg.MeshyRefineBudget,
		})
		if err != nil {
			exitWithError(err)
		}
		svcOpts.Mesh = mesh
	} else {
		oauth, err := auth.NewOAuth(auth.OAuthOptions{
			TokenURL:       cfg.GigaChatTokenURL,
			AuthKey:        cfg.GigaChatAuthKey,
			Scope:          cfg.GigaChatScope,
			Logger:         &logger,
			RequestTimeout: cfg.ProviderCallTimeout,
			InsecureTLS:    !cfg.GigaChatVerifySSL,
		})
		if err != nil {
			exitWithError(err)
		}
		fast, err := gigachat.NewClient(gigachat.Options{
			BaseURL:        cfg.GigaChatBaseURL,
			Model:          cfg.GigaChatModel,
			Auth:           oauth,
			Logger:         &logger,
			RequestTimeout: cfg.ProviderCallTimeout,
			InsecureTLS:    !cfg.GigaChatVerifySSL,
		})
		if err != nil {
			exitWithError(err)
		}
		svcOpts.Fast = fast
	}

	store, err := storage.NewStore(cfg.ImagesOutDir, cfg.ModelsOutDir, cfg.PublicBaseURL)
	if err != nil {
		exitWithError(err)
	}
	svcOpts.Store = store

	svc, err := generate.NewService(svcOpts)
	if err != nil {
		exitWithError(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	res, err := svc.Generate3DModel(ctx, generate.Model3DRequest{
		Prompt:         promptFlag,
		Mode:           modeFlag,
		Style:          styleFlag,
		FilenamePrefix: prefixFlag,
		Extension:      extensionFlag,
		Fewshot:        boolPtr(!noFewshotFlag),
		Locale:         cfg.DefaultLocale,
	})
	if err != nil {
		exitWithError(err)
	}

	fmt.Println(res.ModelURL)
}

func boolPtr(v bool) *bool { return &v }

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
