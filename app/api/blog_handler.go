package api

import (
	"time"

	"agenthub/app/agent"
	"agenthub/types"

	"github.com/gofiber/fiber/v2"
)

type BlogHandler struct {
	blog *agent.Blog
	now  func() time.Time
}

func NewBlogHandler(blog *agent.Blog) *BlogHandler {
	return &BlogHandler{blog: blog, now: time.Now}
}

type blogCreateResponse struct {
	types.BlogCreateResult
	DownloadName string `json:"download_name"`
}

type blogReviewResponse struct {
	types.BlogReviewResult
	DownloadName string `json:"download_name"`
}

func (h *BlogHandler) HandleTypes(c *fiber.Ctx) error {
	bt, err := h.blog.Types(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"blog_types": bt})
}

// HandleCreate leaves the input checks to the agent.
func (h *BlogHandler) HandleCreate(c *fiber.Ctx) error {
	var params types.BlogCreateParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	res, err := h.blog.Create(c.UserContext(), params)
	if err != nil {
		return err
	}
	name, _ := agent.BlogMarkdown(agent.BlogCreate, res.BlogContent, h.now())
	return c.JSON(blogCreateResponse{BlogCreateResult: res, DownloadName: name})
}

func (h *BlogHandler) HandleReview(c *fiber.Ctx) error {
	var params types.BlogReviewParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	res, err := h.blog.Review(c.UserContext(), params)
	if err != nil {
		return err
	}
	name, _ := agent.BlogMarkdown(agent.BlogReview, res.Review, h.now())
	return c.JSON(blogReviewResponse{BlogReviewResult: res, DownloadName: name})
}
