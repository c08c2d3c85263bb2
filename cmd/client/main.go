package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"zipuploader/internal/domain"
	"zipuploader/internal/uploader"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "Server base URL")
	apiKey := flag.String("key", os.Getenv("API_KEY"), "API key (default from API_KEY env)")
	prefix := flag.String("prefix", "", "Listing prefix")
	query := flag.String("q", "", "Search query")
	limit := flag.Int("limit", 100, "Page size")
	pages := flag.Int("pages", 1, "Number of pages to print for list/search")
	flag.Parse()

	if *apiKey == "" {
		log.Fatal("API key is required: pass -key or set API_KEY")
	}

	client := uploader.NewClient(*server, *apiKey)

	// Ctrl+C отменяет контекст; незавершенные сессии отменяются на сервере
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case flag.NArg() > 0:
		uploadFiles(ctx, client, flag.Args())
	case *query != "":
		searchFiles(ctx, client, *query, *prefix, *limit, *pages)
	default:
		listFiles(ctx, client, *prefix, *limit, *pages)
	}
}

func uploadFiles(ctx context.Context, client *uploader.Client, paths []string) {
	queue := uploader.NewQueueManager(client, func(task *domain.UploadTask) {
		if task.Status == domain.StatusUploading || task.Status == domain.StatusHashing {
			fmt.Printf("\r%s: %s %.0f%%   ", task.Filename, task.Status, task.Progress)
		}
	})

	results := make([]<-chan uploader.Result, 0, len(paths))
	for _, path := range paths {
		results = append(results, queue.Enqueue(ctx, path))
	}

	failed := 0
	for _, ch := range results {
		res := <-ch
		if res.Err != nil {
			failed++
			fmt.Printf("\n%s: upload failed: %v\n", res.Path, res.Err)
			continue
		}
		fmt.Printf("\n%s: uploaded (%s, sha256 %s)\n", res.Path, res.Task.Strategy, res.Task.Checksum)
	}
	queue.Drain()

	if failed > 0 {
		os.Exit(1)
	}
}

func listFiles(ctx context.Context, client *uploader.Client, prefix string, limit, pages int) {
	pager := uploader.NewPager(func(ctx context.Context, cursor string) (string, bool, error) {
		page, err := client.ListFiles(ctx, prefix, cursor, limit)
		if err != nil {
			return "", false, err
		}
		for _, folder := range page.Folders {
			fmt.Printf("%-12s %s\n", "<folder>", folder)
		}
		printFiles(page.Files)
		return page.Cursor, page.Truncated, nil
	})

	walkPages(ctx, pager, pages)
}

func searchFiles(ctx context.Context, client *uploader.Client, query, prefix string, limit, pages int) {
	pager := uploader.NewPager(func(ctx context.Context, cursor string) (string, bool, error) {
		result, err := client.SearchFiles(ctx, query, prefix, cursor, limit)
		if err != nil {
			return "", false, err
		}
		printFiles(result.Files)
		return result.Cursor, result.Truncated, nil
	})

	walkPages(ctx, pager, pages)
}

func walkPages(ctx context.Context, pager *uploader.Pager, pages int) {
	if err := pager.Start(ctx); err != nil {
		log.Fatalf("Failed to fetch page: %v", err)
	}

	for pager.Page()+1 < pages && pager.HasNext() {
		if err := pager.Next(ctx); err != nil {
			log.Fatalf("Failed to fetch page: %v", err)
		}
	}
}

func printFiles(files []domain.FileInfo) {
	for _, file := range files {
		fmt.Printf("%-12d %s\n", file.Size, file.Key)
	}
}
