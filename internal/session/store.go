package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/presto/internal/threads"
)

const metaFilename = "session.yaml"

// Store manages session directories under a single root. All mutations are
// written durably (temp file, fsync, rename) before the call returns, so a
// crash immediately after a successful return cannot lose the mutation.
type Store struct {
	root     string
	registry *Registry
	log      zerolog.Logger
}

func NewStore(root string, log zerolog.Logger) *Store {
	return &Store{
		root:     root,
		registry: NewRegistry(filepath.Join(root, "skip_registry"), log),
		log:      log,
	}
}

// Registry exposes the cross-run skip registry backing this store.
func (s *Store) Registry() *Registry {
	return s.registry
}

// Create persists a new session for the given PR: one record file per
// thread plus the session metadata. Threads already present in the skip
// registry come up with their manual-skip marker set, so a fresh analyze
// run never erases a manual decision.
func (s *Store) Create(repo string, pr int, provider string, list []*threads.Thread) (*Session, error) {
	now := time.Now()
	dir := filepath.Join(s.root, fmt.Sprintf("pr_%d_review_%s", pr, now.Format("20060102_150405")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	skipped := s.registry.Load(repo, pr)

	sess := &Session{
		Dir: dir,
		Meta: Meta{
			ID:        uuid.NewString(),
			Repo:      repo,
			PR:        pr,
			Provider:  provider,
			CreatedAt: now,
		},
	}

	for _, t := range list {
		r := newRecord(t)
		if skipped[r.Number] {
			r.ManuallySkipped = true
			r.Status = threads.StatusManuallySkipped
		}
		if err := s.saveRecord(sess, r); err != nil {
			return nil, err
		}
		sess.Records = append(sess.Records, r)
	}
	sess.index()

	if err := s.saveMeta(sess); err != nil {
		return nil, err
	}

	s.log.Info().Str("dir", dir).Int("threads", len(sess.Records)).Msg("session created")
	return sess, nil
}

// Load reads an existing session directory. An unreadable or corrupt
// thread record is logged and dropped from the loaded view rather than
// failing the whole session; the file itself is left untouched on disk.
func (s *Store) Load(dir string) (*Session, error) {
	metaRaw, err := os.ReadFile(filepath.Join(dir, metaFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s has no %s", ErrSessionNotFound, dir, metaFilename)
		}
		return nil, fmt.Errorf("read session metadata: %w", err)
	}

	sess := &Session{Dir: dir}
	if err := yaml.Unmarshal(metaRaw, &sess.Meta); err != nil {
		return nil, fmt.Errorf("parse session metadata: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read session directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "thread_") || !strings.HasSuffix(name, ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			s.log.Error().Err(err).Str("record", name).Msg("unreadable thread record, skipping")
			continue
		}
		r, err := DecodeRecord(data, name)
		if err != nil {
			s.log.Error().Err(err).Str("record", name).Msg("corrupt thread record, skipping")
			continue
		}
		sess.Records = append(sess.Records, r)
	}

	sort.Slice(sess.Records, func(i, j int) bool {
		return sess.Records[i].Number < sess.Records[j].Number
	})
	sess.index()
	return sess, nil
}

// Discover selects the most recently created session for the given PR.
// Returns ErrSessionNotFound when no session for that PR exists under the
// store root; it never silently picks a session for another PR.
func (s *Store) Discover(repo string, pr int) (*Session, error) {
	prefix := fmt.Sprintf("pr_%d_review_", pr)
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for PR %d: run analyze first", ErrSessionNotFound, pr)
		}
		return nil, fmt.Errorf("read sessions root: %w", err)
	}

	// Directory names embed the creation timestamp, so the lexicographic
	// maximum is the newest session.
	var latest string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) && e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		return nil, fmt.Errorf("%w for PR %d: run analyze first", ErrSessionNotFound, pr)
	}

	sess, err := s.Load(filepath.Join(s.root, latest))
	if err != nil {
		return nil, err
	}
	if repo != "" && sess.Meta.Repo != repo {
		return nil, fmt.Errorf("%w: latest session %s belongs to %s, not %s", ErrSessionNotFound, latest, sess.Meta.Repo, repo)
	}
	return sess, nil
}

// AppendDraft records a new draft against a thread and returns it with its
// sequence index. Only the one thread's record file is rewritten.
func (s *Store) AppendDraft(sess *Session, threadID, author, content string) (Draft, int, error) {
	r := sess.Record(threadID)
	if r == nil {
		return Draft{}, 0, fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}

	d := Draft{
		Author:    author,
		Content:   content,
		CreatedAt: time.Now(),
	}
	r.Drafts = append(r.Drafts, d)
	if err := s.saveRecord(sess, r); err != nil {
		r.Drafts = r.Drafts[:len(r.Drafts)-1]
		return Draft{}, 0, err
	}
	return d, len(r.Drafts) - 1, nil
}

// MarkPosted transitions a draft to the terminal posted state. Marking an
// already-posted draft is an error; the flag is never reverted.
func (s *Store) MarkPosted(sess *Session, threadID string, index int) error {
	r := sess.Record(threadID)
	if r == nil {
		return fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}
	if index < 0 || index >= len(r.Drafts) {
		return fmt.Errorf("%w: thread %s has no draft %d", ErrDraftNotFound, threadID, index)
	}
	if r.Drafts[index].Posted {
		return fmt.Errorf("%w: thread %s draft %d", ErrAlreadyPosted, threadID, index)
	}

	now := time.Now()
	r.Drafts[index].Posted = true
	r.Drafts[index].PostedAt = &now
	if err := s.saveRecord(sess, r); err != nil {
		r.Drafts[index].Posted = false
		r.Drafts[index].PostedAt = nil
		return err
	}
	return nil
}

// IsManuallySkipped reports whether the thread is manually skipped,
// consulting both the registry (authoritative) and the record's own
// marker. Either one being set is enough.
func (s *Store) IsManuallySkipped(sess *Session, threadID string) bool {
	r := sess.Record(threadID)
	if r == nil {
		return false
	}
	if r.ManuallySkipped {
		return true
	}
	return s.registry.Load(sess.Meta.Repo, sess.Meta.PR)[r.Number]
}

// ToggleManualSkip updates the cross-run registry and mirrors the decision
// into the thread's record so a human reading the file sees it. The
// registry write happens first: it must survive even if the record write
// fails or the record is later regenerated.
func (s *Store) ToggleManualSkip(sess *Session, number int, skip bool) error {
	var err error
	if skip {
		err = s.registry.Add(sess.Meta.Repo, sess.Meta.PR, number)
	} else {
		err = s.registry.Remove(sess.Meta.Repo, sess.Meta.PR, number)
	}
	if err != nil {
		return err
	}

	r := sess.RecordByNumber(number)
	if r == nil {
		return fmt.Errorf("%w: thread %d (registry updated)", ErrThreadNotFound, number)
	}
	r.ManuallySkipped = skip
	if skip {
		r.Status = threads.StatusManuallySkipped
	} else if r.SkipReason != "" {
		r.Status = threads.StatusAutoSkipped
	} else {
		r.Status = threads.StatusNeedsResponse
	}
	return s.saveRecord(sess, r)
}

// ListManuallySkipped returns the registered thread numbers for a PR in
// ascending order.
func (s *Store) ListManuallySkipped(repo string, pr int) []int {
	set := s.registry.Load(repo, pr)
	numbers := make([]int, 0, len(set))
	for n := range set {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

// Cleanup removes a session directory. The skip registry is deliberately
// left in place: manual skip decisions outlive any one session.
func (s *Store) Cleanup(sess *Session, force bool) error {
	if !force {
		return fmt.Errorf("refusing to delete session %s without force", sess.Dir)
	}
	if err := os.RemoveAll(sess.Dir); err != nil {
		return fmt.Errorf("remove session directory: %w", err)
	}
	s.log.Info().Str("dir", sess.Dir).Msg("session deleted")
	return nil
}

// WriteFile durably writes an auxiliary file (summary, log exports) into
// the session directory.
func (s *Store) WriteFile(sess *Session, name string, data []byte) error {
	return writeFileAtomic(filepath.Join(sess.Dir, name), data)
}

func (s *Store) saveRecord(sess *Session, r *Record) error {
	data, err := r.Encode()
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(sess.Dir, r.Filename), data); err != nil {
		return fmt.Errorf("write thread record %s: %w", r.Filename, err)
	}
	return nil
}

func (s *Store) saveMeta(sess *Session) error {
	data, err := yaml.Marshal(sess.Meta)
	if err != nil {
		return fmt.Errorf("marshal session metadata: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(sess.Dir, metaFilename), data); err != nil {
		return fmt.Errorf("write session metadata: %w", err)
	}
	return nil
}

// writeFileAtomic writes via a temp file in the same directory, fsyncs,
// then renames over the target.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
