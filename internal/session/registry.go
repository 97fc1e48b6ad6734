package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Registry is the durable cross-run record of manually skipped thread
// numbers, one file per (repository, PR), one number per line. It lives
// outside any session directory so a skip decision survives session
// cleanup and re-analysis.
type Registry struct {
	dir string
	log zerolog.Logger
}

func NewRegistry(dir string, log zerolog.Logger) *Registry {
	return &Registry{dir: dir, log: log}
}

func (r *Registry) path(repo string, pr int) string {
	safe := strings.NewReplacer("/", "_", ":", "_").Replace(repo)
	return filepath.Join(r.dir, fmt.Sprintf("%s_pr_%d.skip", safe, pr))
}

// Load reads the skip set for a PR. A missing file means nothing is
// skipped; an unreadable file or garbage line is logged and treated as not
// skipped rather than failing the caller.
func (r *Registry) Load(repo string, pr int) map[int]bool {
	set := make(map[int]bool)

	data, err := os.ReadFile(r.path(repo, pr))
	if err != nil {
		if !os.IsNotExist(err) {
			r.log.Warn().Err(err).Str("repo", repo).Int("pr", pr).Msg("skip registry unreadable, assuming no skips")
		}
		return set
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			r.log.Warn().Str("line", line).Msg("skip registry entry malformed, ignoring")
			continue
		}
		set[n] = true
	}
	return set
}

// Add registers a thread number as manually skipped.
func (r *Registry) Add(repo string, pr, number int) error {
	set := r.Load(repo, pr)
	set[number] = true
	return r.save(repo, pr, set)
}

// Remove unregisters a thread number.
func (r *Registry) Remove(repo string, pr, number int) error {
	set := r.Load(repo, pr)
	delete(set, number)
	return r.save(repo, pr, set)
}

func (r *Registry) save(repo string, pr int, set map[int]bool) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}

	numbers := make([]int, 0, len(set))
	for n := range set {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var b strings.Builder
	for _, n := range numbers {
		fmt.Fprintf(&b, "%d\n", n)
	}
	if err := writeFileAtomic(r.path(repo, pr), []byte(b.String())); err != nil {
		return fmt.Errorf("write skip registry: %w", err)
	}
	return nil
}
