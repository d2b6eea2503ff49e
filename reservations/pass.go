package reservations

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"tessera/rdx"
	"tessera/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/mongo"
)

func passSecret() []byte {
	if s := os.Getenv("PASS_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("tessera_pass_secret")
}

// PassPayload returns the signed string embedded in the pass QR:
// reservationid|ownerid|timestamp|signature.
func PassPayload(reservationID, ownerID string) string {
	data := fmt.Sprintf("%s|%s|%d", reservationID, ownerID, time.Now().Unix())

	h := hmac.New(sha256.New, passSecret())
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))

	return fmt.Sprintf("%s|%s", data, sig)
}

// VerifyPassPayload checks the HMAC on a scanned pass and returns the
// reservation id it names.
func VerifyPassPayload(payload string) (string, bool) {
	idx := strings.LastIndex(payload, "|")
	if idx < 0 {
		return "", false
	}
	data, sig := payload[:idx], payload[idx+1:]

	h := hmac.New(sha256.New, passSecret())
	h.Write([]byte(data))
	expected := base64.StdEncoding.EncodeToString(h.Sum(nil))
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", false
	}

	parts := strings.SplitN(data, "|", 2)
	return parts[0], true
}

// ReservationPass renders a printable PDF pass for one reservation,
// with a signed QR code a door scanner can verify offline. Only owners
// get a pass.
func ReservationPass(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actorID := requesterID(r)
	if actorID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := load(ctx, ps.ByName("id"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "reservation not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "db error")
		return
	}
	if !utils.Contains(res.Owners, actorID) {
		utils.RespondWithError(w, http.StatusForbidden, "not an owner of this reservation")
		return
	}

	qrPNG, err := qrcode.Encode(PassPayload(res.ReservationID, actorID), qrcode.Medium, 256)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to generate QR code")
		return
	}

	if r.URL.Query().Get("format") == "png" {
		w.Header().Set("Content-Type", "image/png")
		w.Write(qrPNG)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Reservation Pass")
	pdf.Ln(12)

	ownerName, err := rdx.RdxGet("users:" + actorID)
	if err != nil || ownerName == "" {
		ownerName = actorID
	}

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Reservation: %s", res.ReservationID))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Name: %s", ownerName))
	pdf.Ln(8)
	if res.Reason != "" {
		pdf.Cell(0, 10, fmt.Sprintf("Reason: %s", res.Reason))
		pdf.Ln(8)
	}
	pdf.Cell(0, 10, fmt.Sprintf("From: %s", res.Start.Format("2006-01-02 15:04")))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("To: %s", res.End.Format("2006-01-02 15:04")))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Reservables: %s", strings.Join(res.Reservables, ", ")))
	pdf.Ln(12)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to generate PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=pass-"+res.ReservationID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
