package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/kb-refresh/internal/persist"
	"github.com/jonathan/kb-refresh/internal/pipeline"
)

// StepResult is the one-line JSON a workflow step prints.
type StepResult struct {
	OK     bool      `json:"ok"`
	Slug   string    `json:"slug,omitempty"`
	Step   string    `json:"step,omitempty"`
	Did    string    `json:"did,omitempty"`
	Next   string    `json:"next,omitempty"`
	Error  string    `json:"error,omitempty"`
	Detail *KBUpload `json:"detail,omitempty"`
	// Source is the KB work directory checked by a failed upload step.
	Source string `json:"src,omitempty"`
}

// Changed reports whether Step modified the state and it needs saving.
func (r *StepResult) Changed() bool {
	return r.OK && r.Did == didUpload
}

const (
	didUpload      = "copied KB files to upload dir"
	didInteractive = "no-op (interactive step)"
)

// Step runs the current restaurant's next automatic step. Only kb_desktop does work: it
// copies the KB documents from the work dir into the upload dir and advances the
// restaurant to retell_agent. Interactive steps are reported back unchanged.
func Step(st *State, workRoot, uploadRoot string) *StepResult {
	slug := st.Current.Slug
	if slug == "" {
		return &StepResult{Error: "state.current.slug missing"}
	}
	if st.Restaurants == nil {
		st.Restaurants = map[string]*Progress{}
	}
	rs, ok := st.Restaurants[slug]
	if !ok || rs == nil {
		step := st.Current.Step
		if step == "" {
			step = StepKBUpload
		}
		rs = &Progress{Status: StatusInProgress, Step: step}
		st.Restaurants[slug] = rs
	}
	if rs.Step == "" {
		rs.Step = StepKBUpload
	}

	def, err := Lookup(rs.Step)
	if err != nil {
		return &StepResult{Slug: slug, Step: rs.Step, Error: err.Error()}
	}
	if def.Interactive {
		return &StepResult{OK: true, Slug: slug, Step: def.Name, Did: didInteractive, Next: def.Name}
	}

	upload, err := copyKB(workRoot, uploadRoot, slug)
	if err != nil {
		return &StepResult{
			Slug:   slug,
			Step:   def.Name,
			Error:  err.Error(),
			Source: pipeline.WorkDir(workRoot, slug),
		}
	}
	rs.Step = def.Next
	rs.KBDesktop = upload
	st.Current.Step = def.Next
	return &StepResult{OK: true, Slug: slug, Step: def.Name, Did: didUpload, Next: def.Next}
}

func copyKB(workRoot, uploadRoot, slug string) (*KBUpload, error) {
	if uploadRoot == "" {
		return nil, fmt.Errorf("upload root not configured")
	}
	src := pipeline.WorkDir(workRoot, slug)
	html := filepath.Join(src, persist.HTMLName(slug))
	md := filepath.Join(src, persist.MarkdownName(slug))
	for _, p := range []string{html, md} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("missing kb source files")
		}
	}

	dst := pipeline.UploadDir(uploadRoot, slug)
	upload := &KBUpload{
		OK:        true,
		UploadDir: dst,
		HTML:      filepath.Join(dst, persist.HTMLName(slug)),
		MD:        filepath.Join(dst, persist.MarkdownName(slug)),
	}
	if err := persist.CopyFile(html, upload.HTML); err != nil {
		return nil, err
	}
	if err := persist.CopyFile(md, upload.MD); err != nil {
		return nil, err
	}
	return upload, nil
}

// Reminder returns a one-line status of the workflow for a scheduled message.
func Reminder(st *State, now time.Time) string {
	const prefix = "Restaurant workflow: "
	if st == nil {
		return prefix + "no state file yet."
	}
	cur := st.Current
	if cur.Slug == "" {
		return prefix + "state has no current.slug"
	}
	age := ""
	if cur.UpdatedAtMs != nil {
		mins := max(0, (now.UnixMilli()-*cur.UpdatedAtMs)/60000)
		age = fmt.Sprintf(" (~%dm ago)", mins)
	}
	if cur.Step == StepDone {
		return fmt.Sprintf("%s%s marked done%s. Next restaurant should be started.", prefix, cur.Slug, age)
	}
	return fmt.Sprintf("%scontinue %s at step=%s%s.", prefix, cur.Slug, cur.Step, age)
}
