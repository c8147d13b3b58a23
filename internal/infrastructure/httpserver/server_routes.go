package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/token", s.exchangeToken)

	protected := api.Group("")
	protected.Use(s.middleware.Auth.RequireAuth())

	entries := protected.Group("/kv")
	entries.GET("/:key", s.getEntry)
	entries.PUT("/:key", s.putEntry)
	entries.DELETE("/:key", s.deleteEntry)

	admin := protected.Group("/admin")
	admin.POST("/cleanup", s.clearExpired)
	admin.GET("/audit", s.getAuditLogs)
}
