// Command quiz generates a multiple-choice quiz from local PDF files and runs it in the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pdf-quiz/internal/adapter"
	"pdf-quiz/internal/adapter/llm"
	"pdf-quiz/internal/adapter/pdftext"
	"pdf-quiz/internal/adapter/quizgen"
	"pdf-quiz/internal/config"
	"pdf-quiz/internal/domain"
	"pdf-quiz/internal/logger"
	"pdf-quiz/internal/repository"
	"pdf-quiz/internal/service"
	"pdf-quiz/internal/storage"

	"go.uber.org/zap"
)

func main() {
	levelFlag := flag.String("level", string(domain.LevelMedium), "difficulty: Easy, Medium or Hard")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-level Easy|Medium|Hard] file.pdf [more.pdf ...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	level, err := domain.ParseLevel(*levelFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("%v.\n", err)
		os.Exit(1)
	}
	// Keep log lines off the quiz unless asked for.
	if os.Getenv("LOGGER_LEVEL") == "" {
		cfg.Logger.Level = "warn"
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	ctx := context.Background()

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize blob storage", zap.Error(err))
	}
	model, err := llm.NewModel(ctx, cfg.LLM)
	if err != nil {
		log.Fatal("Failed to create LLM client", zap.Error(err))
	}
	generator, err := quizgen.NewLLMQuizGenerator(model, quizgen.Options{
		Prompts:     quizgen.PromptBuilder{NumQuestions: cfg.Quiz.NumQuestions, MaxTextRunes: cfg.Quiz.MaxTextRunes},
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to create quiz generator", zap.Error(err))
	}

	memCache := adapter.NewMemoryCacheAdapter()
	svc := service.NewQuizService(
		blobs,
		pdftext.NewExtractor(log),
		quizgen.NewCachedGenerator(generator, memCache, cfg.Quiz.CacheTTL, cfg.Quiz.NumQuestions, log),
		repository.NewCacheSessionRepository(memCache, cfg.Quiz.SessionTTL),
		repository.NewNoopResultRepository(),
		log,
	)

	if err := run(ctx, svc, flag.Args(), level, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "quiz: %v\n", err)
		os.Exit(1)
	}
}

func localFiles(paths []string) ([]domain.UploadFile, error) {
	files := make([]domain.UploadFile, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", p)
		}
		path := p
		files = append(files, domain.UploadFile{
			Name: filepath.Base(path),
			Size: info.Size(),
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}
	return files, nil
}

func run(ctx context.Context, svc service.QuizService, paths []string, level domain.QuizLevel, in io.Reader, out io.Writer) error {
	files, err := localFiles(paths)
	if err != nil {
		return err
	}
	upload, err := svc.Upload(ctx, files)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Generating a %s quiz from %s ...\n", level.PromptValue(), strings.Join(upload.Files, ", "))
	session, err := svc.CreateQuiz(ctx, upload.ID, level)
	if err != nil {
		return err
	}
	if len(session.Questions) == 0 {
		if session.Notice != "" {
			fmt.Fprintln(out, session.Notice)
		}
		return errors.New("the model did not return any questions")
	}

	scanner := bufio.NewScanner(in)
	for i, q := range session.Questions {
		key, ok := ask(scanner, out, i, q)
		if !ok {
			break
		}
		if key == "" {
			continue
		}
		if _, err := svc.SelectAnswer(ctx, session.ID, i, key); err != nil {
			return err
		}
	}

	result, err := svc.SubmitQuiz(ctx, session.ID, nil)
	if err != nil {
		return err
	}
	printReview(out, result)
	return nil
}

// ask prompts until the user picks a valid key or skips with an empty line.
// It reports false once the input is exhausted.
func ask(scanner *bufio.Scanner, out io.Writer, index int, q domain.MCQ) (string, bool) {
	fmt.Fprintf(out, "\nQ%d. %s\n", index+1, q.Question)
	keys := q.OptionKeys()
	for _, k := range keys {
		fmt.Fprintf(out, "  %s) %s\n", k, q.Options[k])
	}
	for {
		fmt.Fprintf(out, "Your answer [%s, empty to skip]: ", strings.Join(keys, "/"))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return "", false
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			return "", true
		}
		if key, ok := q.ResolveKey(answer); ok {
			return key, true
		}
		fmt.Fprintf(out, "%q is not one of the options.\n", answer)
	}
}

func printReview(out io.Writer, result *domain.QuizResult) {
	fmt.Fprintln(out)
	for i, r := range result.Review {
		mark := "x"
		if r.IsCorrect {
			mark = "+"
		}
		selected := r.Selected
		if selected == "" {
			selected = "(no answer)"
		}
		fmt.Fprintf(out, "[%s] Q%d. %s\n    your answer: %s\n    correct:     %s\n", mark, i+1, r.Question, selected, r.CorrectAnswer)
	}
	fmt.Fprintf(out, "\n%s\n", result.Summary())
}
