package gym

import (
	"net/http"
	"strconv"

	"fitnexo/internal/api"
	"fitnexo/internal/auth"
	"fitnexo/internal/validation"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	catalog Catalog
}

func NewHandler(catalog Catalog) *Handler {
	return &Handler{
		catalog: catalog,
	}
}

// @Summary      Current gym
// @Description  Profile of the gym the token belongs to.
// @Tags         gyms
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} gym.Gym
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /gym [get]
func (h *Handler) GetGym(c *gin.Context) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	g, err := h.catalog.Gym(c.Request.Context(), gymID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, g)
}

// @Summary      List plans
// @Tags         gyms
// @Produce      json
// @Security     BearerAuth
// @Param        all query bool false "Include inactive plans"
// @Success      200 {array} gym.Plan
// @Failure      401 {object} api.ErrorResponse
// @Router       /plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	all, _ := strconv.ParseBool(c.Query("all"))

	plans, err := h.catalog.Plans(c.Request.Context(), gymID, all)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, plans)
}

// @Summary      Create a plan
// @Description  Admin-only: add a membership plan to the gym
// @Tags         admin,gyms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body gym.CreatePlanRequest true "Plan payload"
// @Success      201 {object} gym.Plan
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /plans [post]
func (h *Handler) CreatePlan(c *gin.Context) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	p, err := h.catalog.CreatePlan(c.Request.Context(), gymID, req)
	if err != nil {
		if validation.Respond(c, err) {
			return
		}
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// @Summary      Find member by national id
// @Tags         gyms
// @Produce      json
// @Security     BearerAuth
// @Param        national_id query string true "Document number"
// @Success      200 {object} gym.Member
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /members [get]
func (h *Handler) FindMember(c *gin.Context) {
	gymID, ok := auth.GetGymID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	m, err := h.catalog.MemberByNationalID(c.Request.Context(), gymID, c.Query("national_id"))
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}
