package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/billfold/internal/invoice/domain"
	"github.com/smallbiznis/billfold/pkg/db/pagination"
)

type createInvoiceRequest struct {
	ClientID  string                            `json:"client_id"`
	IssueDate string                            `json:"issue_date"`
	DueDate   string                            `json:"due_date"`
	Currency  string                            `json:"currency"`
	Prefix    string                            `json:"prefix"`
	Notes     string                            `json:"notes"`
	Items     []invoicedomain.CreateInvoiceItem `json:"items"`
	Metadata  map[string]any                    `json:"metadata"`
}

type sendInvoiceRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type transitionInvoiceRequest struct {
	Action string `json:"action"`
	Method string `json:"method"`
	sendInvoiceRequest
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issueDate, err := parseOptionalTime(req.IssueDate)
	if err != nil {
		AbortWithError(c, newValidationError("issue_date", "invalid_issue_date", "invalid issue_date"))
		return
	}
	dueDate, err := parseOptionalTime(req.DueDate)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), tenantIDFromContext(c), invoicedomain.CreateInvoiceRequest{
		ClientID:  strings.TrimSpace(req.ClientID),
		IssueDate: issueDate,
		DueDate:   dueDate,
		Currency:  strings.TrimSpace(req.Currency),
		Prefix:    strings.TrimSpace(req.Prefix),
		Notes:     req.Notes,
		Items:     req.Items,
		Metadata:  req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("invoice_id", resp.ID.String())
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := invoicedomain.ListInvoiceRequest{Pagination: query.Pagination}
	if strings.TrimSpace(query.Status) != "" {
		status, ok := invoicedomain.ParseStatus(query.Status)
		if !ok {
			AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
			return
		}
		req.Status = &status
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), tenantIDFromContext(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices, "page_info": resp.PageInfo})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id := s.invoiceIDParam(c)
	item, err := s.invoiceSvc.Get(c.Request.Context(), tenantIDFromContext(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	id := s.invoiceIDParam(c)
	if err := s.invoiceSvc.Delete(c.Request.Context(), tenantIDFromContext(c), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) SendInvoice(c *gin.Context) {
	var req sendInvoiceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	id := s.invoiceIDParam(c)
	item, err := s.invoiceSvc.Send(c.Request.Context(), tenantIDFromContext(c), id, req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) RecordManualPayment(c *gin.Context) {
	id := s.invoiceIDParam(c)
	item, err := s.invoiceSvc.RecordPayment(c.Request.Context(), tenantIDFromContext(c), id, invoicedomain.PaymentMethodManual)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) VoidInvoice(c *gin.Context) {
	id := s.invoiceIDParam(c)
	item, err := s.invoiceSvc.Void(c.Request.Context(), tenantIDFromContext(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) TransitionInvoice(c *gin.Context) {
	var req transitionInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	action, ok := invoicedomain.ParseAction(req.Action)
	if !ok {
		AbortWithError(c, newValidationError("action", "invalid_action", "unknown action"))
		return
	}
	method := invoicedomain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.Method)))
	if method == "" {
		method = invoicedomain.PaymentMethodManual
	}

	id := s.invoiceIDParam(c)
	item, err := s.invoiceSvc.Transition(c.Request.Context(), tenantIDFromContext(c), id, invoicedomain.TransitionRequest{
		Action: action,
		Method: method,
		Send:   req.toDomain(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) invoiceIDParam(c *gin.Context) string {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("invoice_id", id)
	return id
}

func (r sendInvoiceRequest) toDomain() invoicedomain.SendInvoiceRequest {
	return invoicedomain.SendInvoiceRequest{
		To:      strings.TrimSpace(r.To),
		Subject: strings.TrimSpace(r.Subject),
		Message: r.Message,
	}
}
