package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the transaction endpoints. seedGuards run in front of
// the destructive /initialize-database route only.
func RegisterRoutes(r gin.IRouter, h *TransactionHandler, seedGuards ...gin.HandlerFunc) {
	r.GET("/initialize-database", append(seedGuards, h.InitializeDatabase)...)
	r.GET("/transactions", h.ListTransactions)
	r.GET("/statistics", h.GetStatistics)
	r.GET("/bar-chart", h.GetBarChart)
	r.GET("/pie-chart", h.GetPieChart)
	r.GET("/combined-data", h.GetCombinedData)
}
