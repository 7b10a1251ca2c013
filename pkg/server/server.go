// Copyright 2025 Certen Protocol
//
// HTTP surface for the Deal Lifecycle Kernel. Routing follows the teacher's
// manual-prefix style: one mux entry per top-level resource, sub-resources
// dispatched by splitting the trailing path inside the handler.

package server

import (
	"log"
	"net/http"
	"strings"

	"github.com/dealkernel/kernel/pkg/artifacts"
	"github.com/dealkernel/kernel/pkg/gate"
	"github.com/dealkernel/kernel/pkg/kernel"
	"github.com/dealkernel/kernel/pkg/proofpack"
	"github.com/dealkernel/kernel/pkg/store"
)

// Server wires the HTTP surface to the kernel's services and repositories.
type Server struct {
	client        *store.Client
	deals         *store.DealRepository
	actors        *store.ActorRepository
	roles         *store.RoleRepository
	authRules     *store.AuthorityRuleRepository
	events        *store.EventRepository
	materials     *store.MaterialRepository
	artifactRepo  *store.ArtifactRepository

	evaluator     *gate.Evaluator
	appender      *kernel.EventAppender
	draft         *kernel.DraftSandbox
	snapshots     *kernel.SnapshotService
	explainReplay *kernel.ExplainReplay

	artifactStore *artifacts.Store
	proofPack     *proofpack.Exporter

	logger *log.Logger
}

// Deps bundles every dependency a Server needs. Kept as one struct, matching
// the teacher's *Handlers constructors, rather than a dozen constructor args.
type Deps struct {
	Client       *store.Client
	Deals        *store.DealRepository
	Actors       *store.ActorRepository
	Roles        *store.RoleRepository
	AuthRules    *store.AuthorityRuleRepository
	Events       *store.EventRepository
	Materials    *store.MaterialRepository
	ArtifactRepo *store.ArtifactRepository

	Evaluator     *gate.Evaluator
	Appender      *kernel.EventAppender
	Draft         *kernel.DraftSandbox
	Snapshots     *kernel.SnapshotService
	ExplainReplay *kernel.ExplainReplay

	ArtifactStore *artifacts.Store
	ProofPack     *proofpack.Exporter

	Logger *log.Logger
}

// New constructs a Server from Deps.
func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[server] ", log.LstdFlags)
	}
	return &Server{
		client:        d.Client,
		deals:         d.Deals,
		actors:        d.Actors,
		roles:         d.Roles,
		authRules:     d.AuthRules,
		events:        d.Events,
		materials:     d.Materials,
		artifactRepo:  d.ArtifactRepo,
		evaluator:     d.Evaluator,
		appender:      d.Appender,
		draft:         d.Draft,
		snapshots:     d.Snapshots,
		explainReplay: d.ExplainReplay,
		artifactStore: d.ArtifactStore,
		proofPack:     d.ProofPack,
		logger:        logger,
	}
}

// Routes builds the HTTP mux for the kernel's API surface.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", withMetrics("/health", s.handleHealth))
	mux.Handle("/metrics", metricsHandler())

	mux.HandleFunc("/deals", withMetrics("/deals", s.handleDealsRoot))
	mux.HandleFunc("/deals/", withMetrics("/deals/", s.handleDealsSub))

	mux.HandleFunc("/artifacts/", withMetrics("/artifacts/", s.handleArtifactsRoot))

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDealsRoot handles the exact path "/deals".
func (s *Server) handleDealsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createDeal(w, r)
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

// handleDealsSub dispatches every "/deals/{dealId}/..." path.
func (s *Server) handleDealsSub(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/deals/")
	rest = strings.Trim(rest, "/")
	if rest == "" {
		writeError(w, r, http.StatusNotFound, "not found", nil)
		return
	}
	segments := strings.Split(rest, "/")
	dealID, err := parseUUID(segments[0])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid dealId", map[string]string{"dealId": segments[0]})
		return
	}

	if len(segments) == 1 {
		if r.Method == http.MethodGet {
			s.getDeal(w, r, dealID)
			return
		}
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	sub := segments[1]
	tail := segments[2:]

	switch sub {
	case "actors":
		s.routeActors(w, r, dealID, tail)
	case "events":
		s.routeEvents(w, r, dealID, tail)
	case "snapshot":
		s.getSnapshot(w, r, dealID)
	case "explain":
		s.postExplain(w, r, dealID)
	case "proofpack":
		s.getProofPack(w, r, dealID)
	case "materials":
		s.routeMaterials(w, r, dealID, tail)
	case "artifacts":
		s.routeDealArtifacts(w, r, dealID, tail)
	case "draft":
		s.routeDraft(w, r, dealID, tail)
	default:
		writeError(w, r, http.StatusNotFound, "not found", nil)
	}
}
