// Package overview gathers links and pending updates for many folders at once.
package overview

import (
	"context"
	"sync"

	"github.com/nikbrunner/folderlink/internal/model"
)

// Status summarizes what is known about a folder's links.
type Status int

const (
	Unknown  Status = iota // links could not be fetched
	Unshared               // no links exported
	Shared                 // at least one active link
	Revoked                // only revoked links
)

func (s Status) String() string {
	switch s {
	case Unshared:
		return "unshared"
	case Shared:
		return "shared"
	case Revoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// Source fetches per-folder data. *service.Service satisfies it.
type Source interface {
	Links(ctx context.Context, folderID int32) []model.FolderLink
	PendingUpdates(ctx context.Context, folderID int32) *model.PendingFolderUpdate
}

// Result holds the overview for a single folder.
type Result struct {
	Folder  model.Folder
	Status  Status
	Links   []model.FolderLink
	Updates *model.PendingFolderUpdate
}

// ProgressFunc is called after each folder is processed.
// completed is the number of folders processed so far, total is the total count.
type ProgressFunc func(completed, total int)

// Collect fetches every folder's links and updates with at most concurrency
// requests in flight. Results keep the order of folders.
func Collect(ctx context.Context, src Source, folders []model.Folder, concurrency int, onProgress ProgressFunc) []Result {
	if len(folders) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]Result, len(folders))
	jobs := make(chan int, len(folders))
	var wg sync.WaitGroup

	var progressMu sync.Mutex
	completed := 0

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = collectFolder(ctx, src, folders[idx])

				if onProgress != nil {
					progressMu.Lock()
					completed++
					onProgress(completed, len(folders))
					progressMu.Unlock()
				}
			}
		}()
	}

	for i := range folders {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

func collectFolder(ctx context.Context, src Source, folder model.Folder) Result {
	result := Result{Folder: folder}
	if ctx.Err() != nil {
		return result
	}

	result.Links = src.Links(ctx, folder.ID)
	result.Status = classify(result.Links)
	result.Updates = src.PendingUpdates(ctx, folder.ID)
	return result
}

func classify(links []model.FolderLink) Status {
	if links == nil {
		return Unknown
	}
	if len(links) == 0 {
		return Unshared
	}
	for _, l := range links {
		if !l.IsRevoked {
			return Shared
		}
	}
	return Revoked
}
