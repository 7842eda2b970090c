//go:build integration

package integration

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
	"github.com/eliteGoblin/focusd/opwindow/internal/infra"
	"github.com/eliteGoblin/focusd/opwindow/internal/policy"
	"github.com/eliteGoblin/focusd/opwindow/internal/schedule"
	"github.com/eliteGoblin/focusd/opwindow/internal/transport/rest"
	"github.com/eliteGoblin/focusd/opwindow/internal/usecase"
)

func nightlySpec(name string) usecase.WindowSpec {
	return usecase.WindowSpec{
		Name:       name,
		StartDate:  "01/01/2024",
		EndDate:    "31/12/2024",
		Operations: []string{"FULL_DATA_MANAGEMENT"},
		DaysOfWeek: []string{"monday"},
		StartTime:  schedule.At("00:00"),
		EndTime:    schedule.At("23:59"),
	}
}

// engineBehaviour runs the same lifecycle against any store backend.
func engineBehaviour(newStore func() domain.WindowStore) {
	var (
		ctx    context.Context
		store  domain.WindowStore
		client *usecase.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newStore()

		var err error
		client, err = usecase.NewEngine(store, policy.DefaultMatrix(),
			domain.EntityScope{Kind: domain.ScopeClient, Ref: "client-01"}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("window lifecycle", func() {
		It("adds, reads back and deletes a window", func() {
			rule, err := client.Add(ctx, nightlySpec("R1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(rule.RuleID).To(BeNumerically(">", 0))

			got, err := client.Get(ctx, domain.ByName("R1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(got.RuleID).To(Equal(rule.RuleID))
			Expect(got.Operations).To(ConsistOf(domain.OpFullDataManagement))
			Expect(got.DaySegments).To(ConsistOf(domain.DaySegment{
				Weekday: time.Monday, StartSeconds: 0, EndSeconds: 86340,
			}))

			Expect(client.Delete(ctx, domain.ByID(rule.RuleID))).To(Succeed())

			_, err = client.Get(ctx, domain.ByID(rule.RuleID))
			Expect(err).To(MatchError(domain.ErrNotFound))
		})

		It("falls back to the name when the id is stale", func() {
			rule, err := client.Add(ctx, nightlySpec("R4"))
			Expect(err).NotTo(HaveOccurred())
			stale := domain.Identifier{RuleID: rule.RuleID + 999, Name: "R4"}

			got, err := client.Get(ctx, stale)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.RuleID).To(Equal(rule.RuleID))

			Expect(client.Delete(ctx, stale)).To(Succeed())
			_, err = client.Get(ctx, domain.ByName("R4"))
			Expect(err).To(MatchError(domain.ErrNotFound))
		})

		It("treats deleting a missing window as success", func() {
			Expect(client.Delete(ctx, domain.ByName("never-existed"))).To(Succeed())
		})

		It("keeps untouched fields when editing", func() {
			_, err := client.Add(ctx, nightlySpec("R2"))
			Expect(err).NotTo(HaveOccurred())

			enabled := true
			edited, err := client.Edit(ctx, domain.ByName("R2"), usecase.WindowPatch{
				DaysOfWeek:     []string{"friday"},
				DoNotSubmitJob: &enabled,
				Validate:       true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(edited.Operations).To(ConsistOf(domain.OpFullDataManagement))
			Expect(edited.DoNotSubmitJob).To(BeTrue())
			Expect(edited.Weekdays()).To(ConsistOf(time.Friday))
		})

		It("rejects a duplicate name in the same scope", func() {
			_, err := client.Add(ctx, nightlySpec("R3"))
			Expect(err).NotTo(HaveOccurred())

			_, err = client.Add(ctx, nightlySpec("R3"))
			Expect(err).To(MatchError(domain.ErrAlreadyExists))
		})

		It("lists only the engine's scope", func() {
			other, err := usecase.NewEngine(store, nil,
				domain.EntityScope{Kind: domain.ScopeAgent, Ref: "client-01/File System"}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			_, err = client.Add(ctx, nightlySpec("mine"))
			Expect(err).NotTo(HaveOccurred())
			_, err = other.Add(ctx, nightlySpec("theirs"))
			Expect(err).NotTo(HaveOccurred())

			rules, err := client.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rules).To(HaveLen(1))
			Expect(rules[0].Name).To(Equal("mine"))
		})
	})

	Describe("scope capabilities", func() {
		It("refuses an operation the subclient kind cannot restrict", func() {
			sub, err := usecase.NewEngine(store, nil,
				domain.EntityScope{Kind: domain.ScopeSubclient, Ref: "client-01/fs/default"}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			spec := nightlySpec("aux")
			spec.Operations = []string{"AUX_COPY"}
			_, err = sub.Add(ctx, spec)
			Expect(err).To(MatchError(domain.ErrUnsupportedOperationForScope))

			rules, err := sub.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rules).To(BeEmpty())
		})
	})
}

var _ = Describe("Window engine", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "opwindow-integration-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	openLocal := func() *infra.SQLiteWindowStore {
		store, err := infra.OpenWindowStore(tmpDir, infra.NewFileKeyProvider(tmpDir))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
		return store
	}

	Context("on the encrypted local store", func() {
		engineBehaviour(func() domain.WindowStore { return openLocal() })
	})

	Context("through the REST server", func() {
		engineBehaviour(func() domain.WindowStore {
			srv := httptest.NewServer(rest.NewHandler(openLocal(), zap.NewNop()).Router())
			DeferCleanup(srv.Close)
			return rest.NewClient(srv.URL, 5*time.Second)
		})
	})

	Describe("backup and restore", func() {
		It("brings back windows deleted after the snapshot", func() {
			ctx := context.Background()
			store := openLocal()
			engine, err := usecase.NewEngine(store, nil,
				domain.EntityScope{Kind: domain.ScopeClient, Ref: "client-01"}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Add(ctx, nightlySpec("keep-me"))
			Expect(err).NotTo(HaveOccurred())

			bm := infra.NewBackupManager(filepath.Join(tmpDir, "backups"), 3, zap.NewNop())
			snap, err := bm.Snapshot(ctx, store)
			Expect(err).NotTo(HaveOccurred())

			Expect(engine.Delete(ctx, domain.ByName("keep-me"))).To(Succeed())
			Expect(store.Close()).To(Succeed())

			Expect(bm.Restore(*snap, tmpDir)).To(Succeed())

			reopened := openLocal()
			engine, err = usecase.NewEngine(reopened, nil,
				domain.EntityScope{Kind: domain.ScopeClient, Ref: "client-01"}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())
			rule, err := engine.Get(ctx, domain.ByName("keep-me"))
			Expect(err).NotTo(HaveOccurred())
			Expect(rule.Operations).To(ConsistOf(domain.OpFullDataManagement))
		})
	})
})
