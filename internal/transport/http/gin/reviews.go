package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary  Submit review
// @Description Only the owner of a completed booking may review it, once.
// @Tags     reviews
// @Security BearerAuth
// @Param    req  body  SubmitReviewRequest  true  "payload"
// @Success  201  {object}  domain.Review
// @Failure  409  {object}  ErrorResponse  "already reviewed"
// @Failure  422  {object}  ErrorResponse  "booking not completed"
// @Router   /api/reviews [post]
func (h *handler) submitReview(c *gin.Context) {
	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	b, err := h.svcs.Bookings.Get(c.Request.Context(), req.BookingID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if p, _ := principal(c); p.UserID != b.UserID {
		abortAuth(c, http.StatusForbidden, "booking belongs to another user")
		return
	}

	rv, err := h.svcs.Reviews.Submit(c.Request.Context(), req.BookingID, req.Rating, req.Comment)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, rv)
}

// @Summary  Update review
// @Tags     admin
// @Security BearerAuth
// @Param    id   path  string               true  "Review ID"
// @Param    req  body  UpdateReviewRequest  true  "payload"
// @Success  200  {object}  domain.Review
// @Router   /api/admin/reviews/{id} [put]
func (h *handler) updateReview(c *gin.Context) {
	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rv, err := h.svcs.Reviews.Update(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, rv)
}

// @Summary  Delete review
// @Tags     admin
// @Security BearerAuth
// @Param    id  path  string  true  "Review ID"
// @Success  204
// @Router   /api/admin/reviews/{id} [delete]
func (h *handler) deleteReview(c *gin.Context) {
	if err := h.svcs.Reviews.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary  Reviews of a schedule
// @Tags     reviews
// @Param    id  path  string  true  "Schedule ID"
// @Success  200  {array}  domain.ReviewView
// @Router   /api/schedules/{id}/reviews [get]
func (h *handler) scheduleReviews(c *gin.Context) {
	out, err := h.svcs.Reviews.ListBySchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}

	writeJSONWithCache(c, http.StatusOK, out, "public, max-age=30", true)
}

// @Summary  Reviews of a company
// @Tags     reviews
// @Param    id  path  string  true  "Company ID"
// @Success  200  {array}  domain.ReviewView
// @Router   /api/companies/{id}/reviews [get]
func (h *handler) companyReviews(c *gin.Context) {
	out, err := h.svcs.Reviews.ListByCompany(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}

	writeJSONWithCache(c, http.StatusOK, out, "public, max-age=30", true)
}
