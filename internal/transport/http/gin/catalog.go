package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary  Search schedules
// @Tags     schedules
// @Param    origin          query  string  false  "case-insensitive substring"
// @Param    destination     query  string  false  "case-insensitive substring"
// @Param    type            query  string  false  "bus, flight or train"
// @Param    departure_date  query  string  false  "YYYY-MM-DD (UTC)"
// @Param    price_min       query  int     false  "minimum price"
// @Param    price_max       query  int     false  "maximum price"
// @Param    sort_by         query  string  false  "departure_at or price"
// @Param    order           query  string  false  "asc or desc"
// @Success  200  {array}   domain.Schedule
// @Failure  400  {object}  ErrorResponse
// @Router   /api/schedules [get]
func (h *handler) searchSchedules(c *gin.Context) {
	var q ScheduleSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	out, err := h.svcs.Catalog.SearchSchedules(c.Request.Context(), q.filter())
	if err != nil {
		respondErr(c, err)
		return
	}

	writeJSONWithCache(c, http.StatusOK, out, "public, max-age=15", true)
}

// @Summary  Most booked schedules
// @Tags     schedules
// @Success  200  {array}  domain.PopularSchedule
// @Router   /api/schedules/popular [get]
func (h *handler) popularSchedules(c *gin.Context) {
	out, err := h.svcs.Catalog.PopularSchedules(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}

	writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
}

// @Summary  Get schedule
// @Tags     schedules
// @Param    id  path  string  true  "Schedule ID"
// @Success  200  {object}  domain.Schedule
// @Failure  404  {object}  ErrorResponse
// @Router   /api/schedules/{id} [get]
func (h *handler) getSchedule(c *gin.Context) {
	s, err := h.svcs.Catalog.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}

	writeJSONWithCache(c, http.StatusOK, s, "public, max-age=15", true)
}

// @Summary  List companies
// @Tags     companies
// @Success  200  {array}  domain.Company
// @Router   /api/companies [get]
func (h *handler) listCompanies(c *gin.Context) {
	out, err := h.svcs.Catalog.ListCompanies(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}

	writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
}

// @Summary  Get company
// @Tags     companies
// @Param    id  path  string  true  "Company ID"
// @Success  200  {object}  domain.Company
// @Failure  404  {object}  ErrorResponse
// @Router   /api/companies/{id} [get]
func (h *handler) getCompany(c *gin.Context) {
	co, err := h.svcs.Catalog.GetCompany(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}

	writeJSONWithCache(c, http.StatusOK, co, "public, max-age=60", true)
}

// @Summary  Create company
// @Tags     admin
// @Security BearerAuth
// @Param    req  body  CompanyRequest  true  "payload"
// @Success  201  {object}  domain.Company
// @Failure  409  {object}  ErrorResponse  "name taken"
// @Router   /api/admin/companies [post]
func (h *handler) createCompany(c *gin.Context) {
	var req CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	co, err := h.svcs.Catalog.CreateCompany(c.Request.Context(), req.input())
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, co)
}

// @Summary  Update company
// @Tags     admin
// @Security BearerAuth
// @Param    id   path  string               true  "Company ID"
// @Param    req  body  CompanyPatchRequest  true  "payload"
// @Success  200  {object}  domain.Company
// @Router   /api/admin/companies/{id} [put]
func (h *handler) updateCompany(c *gin.Context) {
	var req CompanyPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	co, err := h.svcs.Catalog.UpdateCompany(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, co)
}

// @Summary  Delete company
// @Tags     admin
// @Security BearerAuth
// @Param    id  path  string  true  "Company ID"
// @Success  204
// @Failure  409  {object}  ErrorResponse  "company has schedules"
// @Router   /api/admin/companies/{id} [delete]
func (h *handler) deleteCompany(c *gin.Context) {
	if err := h.svcs.Catalog.DeleteCompany(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary  Create schedule
// @Tags     admin
// @Security BearerAuth
// @Param    req  body  ScheduleRequest  true  "payload"
// @Success  201  {object}  domain.Schedule
// @Router   /api/admin/schedules [post]
func (h *handler) createSchedule(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, err := h.svcs.Catalog.CreateSchedule(c.Request.Context(), req.input())
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, s)
}

// @Summary  Update schedule
// @Tags     admin
// @Security BearerAuth
// @Param    id   path  string                true  "Schedule ID"
// @Param    req  body  SchedulePatchRequest  true  "payload"
// @Success  200  {object}  domain.Schedule
// @Router   /api/admin/schedules/{id} [put]
func (h *handler) updateSchedule(c *gin.Context) {
	var req SchedulePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, err := h.svcs.Catalog.UpdateSchedule(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, s)
}

// @Summary  Delete schedule
// @Tags     admin
// @Security BearerAuth
// @Param    id  path  string  true  "Schedule ID"
// @Success  204
// @Failure  409  {object}  ErrorResponse  "schedule has active bookings"
// @Router   /api/admin/schedules/{id} [delete]
func (h *handler) deleteSchedule(c *gin.Context) {
	if err := h.svcs.Catalog.DeleteSchedule(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
