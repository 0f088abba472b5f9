package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"modelkeeper/pkg/types"
)

func TestPruneKeepsNewest(t *testing.T) {
	for n := 0; n <= 6; n++ {
		for max := 1; max <= 4; max++ {
			t.Run(fmt.Sprintf("n=%d,max=%d", n, max), func(t *testing.T) {
				var insts []types.Instance
				for i := 1; i <= n; i++ {
					insts = append(insts, inst(fmt.Sprintf("i%d", i), types.StatusAvailable, at(i)))
				}
				fb := newFakeBackend(insts...)
				env := newTestEnv(t, fb, func(c *Config) { c.MaxInstances = max })
				if err := env.m.prune(context.Background()); err != nil {
					t.Fatalf("prune: %v", err)
				}
				var want []string
				for i := 1; i <= n; i++ {
					if i > n-max {
						want = append(want, fmt.Sprintf("i%d", i))
					}
				}
				got := fb.remaining()
				if len(want) == 0 {
					want = []string{}
				}
				if !reflect.DeepEqual(got, want) {
					t.Fatalf("remaining=%v want %v", got, want)
				}
			})
		}
	}
}

func TestPruneIgnoresOtherNames(t *testing.T) {
	fb := newFakeBackend(
		inst("a", types.StatusAvailable, at(1)),
		inst("b", types.StatusAvailable, at(2)),
		types.Instance{ID: "other", Name: "y", CreatedAt: at(0)},
	)
	env := newTestEnv(t, fb, func(c *Config) { c.MaxInstances = 1 })
	if err := env.m.prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if !reflect.DeepEqual(fb.deleted, []string{"a"}) {
		t.Fatalf("deleted=%v", fb.deleted)
	}
}

func TestPruneMarksRecordsDeleted(t *testing.T) {
	fb := newFakeBackend(inst("a", types.StatusAvailable, at(1)), inst("b", types.StatusAvailable, at(2)))
	env := newTestEnv(t, fb, func(c *Config) { c.MaxInstances = 1 })
	ctx := context.Background()
	if err := env.m.data.Save(ctx, "a", types.KindClassifier, []byte("t,c\n")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := env.m.prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if _, err := env.m.data.Load(ctx, "a"); err == nil {
		t.Fatalf("record of pruned instance should be deleted")
	}
	// missing record for b is fine; nothing to assert beyond no error
}

func TestPruneTerminatesWhenListLags(t *testing.T) {
	fb := newFakeBackend(
		inst("a", types.StatusAvailable, at(1)),
		inst("b", types.StatusAvailable, at(2)),
		inst("c", types.StatusAvailable, at(3)),
	)
	fb.keepDeletedInList = true
	env := newTestEnv(t, fb, func(c *Config) { c.MaxInstances = 1 })
	if err := env.m.prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if !reflect.DeepEqual(fb.deleted, []string{"a", "b"}) {
		t.Fatalf("deleted=%v", fb.deleted)
	}
}

func TestPruneDeleteFailure(t *testing.T) {
	fb := newFakeBackend(inst("a", types.StatusAvailable, at(1)), inst("b", types.StatusAvailable, at(2)))
	fb.deleteErr = errors.New("forbidden")
	env := newTestEnv(t, fb, func(c *Config) { c.MaxInstances = 1 })
	err := env.m.prune(context.Background())
	var re *RetentionError
	if !errors.As(err, &re) || re.ID != "a" {
		t.Fatalf("expected retention error for a, got %v", err)
	}
}

func TestDefaultMaxInstancesPerKind(t *testing.T) {
	fb := newFakeBackend()
	if m := New(fb, ""); m.maxInst != 3 || m.Name() != "default-classifier" {
		t.Fatalf("classifier defaults: max=%d name=%s", m.maxInst, m.Name())
	}
	fb.kind = types.KindRanker
	if m := New(fb, ""); m.maxInst != 1 || m.Name() != "default-ranker" {
		t.Fatalf("ranker defaults: max=%d name=%s", m.maxInst, m.Name())
	}
}
