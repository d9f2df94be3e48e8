package docfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/theirongolddev/moneyshape/internal/document"
	"github.com/theirongolddev/moneyshape/internal/model"
)

func TestLoad_JSONAndYAMLAgree(t *testing.T) {
	jb, jh, err := Load(filepath.Join("testdata", "household.json"))
	if err != nil {
		t.Fatalf("Load json: %v", err)
	}
	yb, yh, err := Load(filepath.Join("testdata", "household.yaml"))
	if err != nil {
		t.Fatalf("Load yaml: %v", err)
	}
	if jh == 0 || yh == 0 || jh == yh {
		t.Errorf("hashes = %x, %x; want distinct non-zero", jh, yh)
	}
	if diff := cmp.Diff(jb.Objects, yb.Objects); diff != "" {
		t.Errorf("objects differ (-json +yaml):\n%s", diff)
	}
	if yb.Name != "household" {
		t.Errorf("yaml board name = %q, want name from file", yb.Name)
	}
}

func TestLoad_BuildsStore(t *testing.T) {
	b, _, err := Load(filepath.Join("testdata", "household.json"))
	if err != nil {
		t.Fatal(err)
	}
	s, err := b.Store()
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	kids := s.Snapshot().Children("container:home")
	if len(kids) != 2 {
		t.Errorf("children = %v, want 2", kids)
	}
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	_, err := Decode("b.json", []byte(`{"version":1,"objects":[],"extra":true}`))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestDecode_RejectsFutureVersion(t *testing.T) {
	_, err := Decode("b.yaml", []byte("version: 9\nobjects: []\n"))
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
}

func TestDecode_RejectsExtension(t *testing.T) {
	if _, err := Decode("b.txt", nil); !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
}

func TestSave_RoundTripsAndReportsHash(t *testing.T) {
	for _, ext := range []string{".json", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			src, _, err := Load(filepath.Join("testdata", "household"+ext))
			if err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(t.TempDir(), "out", "board"+ext)
			h, err := Save(path, src)
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, gh, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if h != gh {
				t.Errorf("Save hash %x != Load hash %x", h, gh)
			}
			if diff := cmp.Diff(src.Objects, got.Objects); diff != "" {
				t.Errorf("round trip (-want +got):\n%s", diff)
			}

			entries, _ := os.ReadDir(filepath.Dir(path))
			if len(entries) != 1 {
				t.Errorf("temp file left behind: %v", entries)
			}
		})
	}
}

func TestFromView_ParentsFirst(t *testing.T) {
	s, err := document.New([]model.Object{
		{ID: "i", Type: model.TypeItem, ParentID: "inner", Item: &model.Item{Kind: model.KindExpense, Amount: 5}},
		{ID: "inner", Type: model.TypeContainer, ParentID: "outer", Container: &model.Container{}},
		{ID: "outer", Type: model.TypeContainer, Container: &model.Container{}},
	})
	if err != nil {
		t.Fatal(err)
	}
	b := FromView("x", s.Snapshot())
	var got []string
	for _, o := range b.Objects {
		got = append(got, o.ID)
	}
	if diff := cmp.Diff([]string{"outer", "inner", "i"}, got); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
	if b.Version != FormatVersion {
		t.Errorf("Version = %d", b.Version)
	}
}
