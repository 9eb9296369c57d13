package checkout

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/payment"

	"go.uber.org/zap"
)

const maxWebhookBody = int64(65536)

// paymentWebhook applies a provider's settlement notification to the
// transaction it names. Events that settle nothing are acknowledged so the
// provider stops retrying.
func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	gateway := r.PathValue("gateway")
	log := logger.FromCtx(r.Context()).With(zap.String("gateway", gateway))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	tx, err := h.payments.Settle(r.Context(), gateway, r.Header, body)
	switch {
	case err == nil:
		log.Info("payment notification applied",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("state", string(tx.State)),
		)
	case errors.Is(err, payment.ErrNoticeIgnored):
		log.Debug("payment notification ignored", zap.Error(err))
	case errors.Is(err, payment.ErrInvalidSignature):
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	case errors.Is(err, payment.ErrInvalidNotice):
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	case errors.Is(err, payment.ErrUnsupportedMethod), errors.Is(err, payment.ErrTransactionNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	case errors.Is(err, payment.ErrTransactionSettled):
		http.Error(w, "transaction already settled", http.StatusConflict)
		return
	default:
		log.Error("failed to apply payment notification", zap.Error(err))
		http.Error(w, "failed to update transaction", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}
