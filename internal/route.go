package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	swagger "github.com/gofiber/swagger"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/auth"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/export"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/relay"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/router"

	ctlAdmin "github.com/gdbrns/go-whatsapp-group-exporter/internal/admin"
	ctlGroups "github.com/gdbrns/go-whatsapp-group-exporter/internal/groups"
	ctlIndex "github.com/gdbrns/go-whatsapp-group-exporter/internal/index"
	ctlNotify "github.com/gdbrns/go-whatsapp-group-exporter/internal/notify"
	ctlSession "github.com/gdbrns/go-whatsapp-group-exporter/internal/session"
	ctlStatus "github.com/gdbrns/go-whatsapp-group-exporter/internal/status"
	typInternal "github.com/gdbrns/go-whatsapp-group-exporter/internal/types"
)

// Dependencies are the collaborators the HTTP layer talks to.
type Dependencies struct {
	Session       typInternal.SessionControl
	Groups        typInternal.GroupLister
	Members       typInternal.MemberResolver
	Versions      typInternal.VersionControl
	Index         typInternal.IndexStats
	Hub           *relay.Hub
	ExportDefault export.Kind
	// Now stamps export filenames; nil means time.Now.
	Now func() time.Time
}

func Routes(app *fiber.App, deps Dependencies) {
	// Configure OpenAPI / Swagger
	specURL := router.BaseURL + "/docs/swagger.json"
	swaggerHandler := swagger.New(swagger.Config{
		URL: specURL,
	})

	statusCtl := ctlStatus.New(deps.Session, deps.Index, deps.Versions)
	groupsCtl := ctlGroups.New(deps.Groups, deps.Members, deps.ExportDefault)
	if deps.Now != nil {
		groupsCtl.WithClock(deps.Now)
	}
	sessionCtl := ctlSession.New(deps.Session)
	adminCtl := ctlAdmin.New(deps.Versions)

	// Route for Index
	// ---------------------------------------------
	if router.BaseURL == "" {
		app.Get("/", ctlIndex.Index)
	} else {
		app.Get(router.BaseURL, ctlIndex.Index)
		app.Get(router.BaseURL+"/", ctlIndex.Index)
	}

	// Route for OpenAPI / Swagger
	// ---------------------------------------------
	app.Get(router.BaseURL+"/docs/swagger.json", func(c *fiber.Ctx) error {
		return c.SendFile("docs/swagger.json")
	})
	app.Get(router.BaseURL+"/docs/*", swaggerHandler)

	// ============================================================
	// ADMIN ROUTES (X-Admin-Secret authentication)
	// ============================================================
	adminMiddleware := auth.AdminAuth()
	app.Post(router.BaseURL+"/api/admin/tokens", adminMiddleware, adminCtl.CreateToken)
	if deps.Versions != nil {
		app.Get(router.BaseURL+"/api/admin/whatsapp/version", adminMiddleware, adminCtl.GetVersion)
		app.Post(router.BaseURL+"/api/admin/whatsapp/version/refresh", adminMiddleware, adminCtl.RefreshVersion)
	}

	// ============================================================
	// API ROUTES (Bearer token when JWT_SECRET_KEY is set)
	// ============================================================
	accessMiddleware := auth.AccessAuth()
	readyMiddleware := RequireReady(deps.Session)

	// Session
	app.Get(router.BaseURL+"/api/status", accessMiddleware, statusCtl.Status)
	app.Get(router.BaseURL+"/api/debug", accessMiddleware, readyMiddleware, statusCtl.Debug)
	app.Get(router.BaseURL+"/api/logout", accessMiddleware, sessionCtl.Logout)
	app.Get(router.BaseURL+"/api/qr", accessMiddleware, sessionCtl.QR)
	app.Post(router.BaseURL+"/api/login/code", accessMiddleware, sessionCtl.LoginCode)

	// Groups
	app.Get(router.BaseURL+"/api/groups", accessMiddleware, readyMiddleware, groupsCtl.List)
	app.Get(router.BaseURL+"/api/groups/:id/contacts", accessMiddleware, readyMiddleware, groupsCtl.Contacts)
	app.Get(router.BaseURL+"/api/groups/:id/export", accessMiddleware, readyMiddleware, groupsCtl.Export)

	// Push channel
	if deps.Hub != nil {
		app.Get(router.BaseURL+"/ws", accessMiddleware, ctlNotify.Upgrade, ctlNotify.Handler(deps.Hub))
	}

	// Static UI assets
	app.Static(router.BaseURL+"/", router.StaticDir, fiber.Static{
		Compress: true,
		Index:    "index.html",
	})
}
