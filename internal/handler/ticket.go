package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/model"
)

const ticketSize = 256

// TicketReference is the text encoded in a booking's QR code.
func TicketReference(b model.Booking) string {
	return fmt.Sprintf("BOOKING:%d|SHOWTIME:%d|SEATS:%d|STATUS:%s", b.ID, b.ShowtimeID, b.Seats, b.Status)
}

// Ticket handles GET /api/bookings/:id/ticket and returns a PNG QR code.
// Only the booking's owner and admins may fetch it.
func (h *BookingHandler) Ticket(c echo.Context) error {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	b, err := h.Bookings.GetForViewer(ctx, id, who.UserID, who.IsAdmin())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	png, err := qrcode.Encode(TicketReference(*b), qrcode.Medium, ticketSize)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`inline; filename="booking-%d.png"`, b.ID))
	return c.Blob(http.StatusOK, "image/png", png)
}
