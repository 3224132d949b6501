package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sigrh/internal/catalog"
	id "sigrh/pkg/domain"
	"sigrh/pkg/testutil"
)

func newCatalogRouter(t *testing.T) (http.Handler, *catalog.InMemory) {
	t.Helper()
	store := catalog.NewInMemory()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	h := New(store, logger)
	r := chi.NewRouter()
	h.Register(r)
	return r, store
}

func seedGrid(t *testing.T, store *catalog.InMemory) (*catalog.Grade, *catalog.PayScale) {
	t.Helper()
	grade := &catalog.Grade{ID: id.GradeID(uuid.New()), Code: "G2", Name: "Deuxieme grade", Ordinal: 2, Active: true}
	store.PutGrade(grade)
	scale := &catalog.PayScale{ID: id.PayScaleID(uuid.New()), Code: "E-B1-G2", Name: "Echelle B1", Category: "B1", GradeID: grade.ID, MinIndex: 250, MaxIndex: 700, Active: true}
	if err := store.PutPayScale(scale); err != nil {
		t.Fatalf("seed pay scale: %v", err)
	}
	for n := 1; n <= 3; n++ {
		step := &catalog.Step{ID: id.StepID(uuid.New()), PayScaleID: scale.ID, Number: n, GrossIndex: 250 + n*50, IncrementMonths: 24, Active: true}
		if err := store.PutStep(step); err != nil {
			t.Fatalf("seed step %d: %v", n, err)
		}
	}
	return grade, scale
}

func TestListCorps(t *testing.T) {
	router, store := newCatalogRouter(t)
	store.PutCorps(&catalog.Corps{ID: id.CorpsID(uuid.New()), Code: "ENS", Name: "Enseignants", Category: "B1", Active: true})

	rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/catalog/corps"))
	testutil.AssertStatus(t, rec, http.StatusOK)

	corps := testutil.UnmarshalResponse[[]catalog.Corps](t, rec)
	if len(*corps) != 1 || (*corps)[0].Code != "ENS" {
		t.Fatalf("expected the seeded corps, got %+v", *corps)
	}
}

func TestListPayScalesRequiresFilter(t *testing.T) {
	router, store := newCatalogRouter(t)
	grade, scale := seedGrid(t, store)

	rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/catalog/pay-scales"))
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
	testutil.AssertErrorCode(t, rec, "bad_request")

	rec = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
		"/catalog/pay-scales?category=B1&grade_id="+grade.ID.String()))
	testutil.AssertStatus(t, rec, http.StatusOK)

	scales := testutil.UnmarshalResponse[[]catalog.PayScale](t, rec)
	if len(*scales) != 1 || (*scales)[0].ID != scale.ID {
		t.Fatalf("expected the seeded scale for (B1, grade), got %+v", *scales)
	}

	// A non-matching category filters everything out.
	rec = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
		"/catalog/pay-scales?category=A1&grade_id="+grade.ID.String()))
	testutil.AssertStatus(t, rec, http.StatusOK)
	empty := testutil.UnmarshalResponse[[]catalog.PayScale](t, rec)
	if len(*empty) != 0 {
		t.Fatalf("expected no scales for the wrong category, got %d", len(*empty))
	}
}

func TestListStepsDescending(t *testing.T) {
	router, store := newCatalogRouter(t)
	_, scale := seedGrid(t, store)

	rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
		"/catalog/pay-scales/"+scale.ID.String()+"/steps"))
	testutil.AssertStatus(t, rec, http.StatusOK)

	steps := testutil.UnmarshalResponse[[]catalog.Step](t, rec)
	if len(*steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(*steps))
	}
	for i, step := range *steps {
		if step.Number != 3-i {
			t.Fatalf("expected steps ordered by number descending, got %d at position %d", step.Number, i)
		}
	}
}

func TestListStepsRejectsBadID(t *testing.T) {
	router, _ := newCatalogRouter(t)

	rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/catalog/pay-scales/nope/steps"))
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}
