package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"submerger/core"
	"submerger/database"
	"submerger/logger"
	"submerger/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// addSubscription handles registering a new subscription URL.
func addSubscription(w http.ResponseWriter, r *http.Request) {
	var sub models.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		logger.Error("addSubscription: Error decoding request body: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse{Message: "Invalid request body: " + err.Error()})
		return
	}
	defer r.Body.Close()

	sub.URL = strings.TrimSpace(sub.URL)
	if sub.URL == "" {
		logger.Error("addSubscription: url is required")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse{Message: "url is required"})
		return
	}
	sub.Name = strings.TrimSpace(sub.Name)
	sub.ID = uuid.New().String()

	created, err := database.AddSubscription(sub)
	if err != nil {
		logger.Error("addSubscription: Internal server error: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse{Message: "Internal server error"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		logger.Error("addSubscription: Error encoding response for subscription %s: %v", created.ID, err)
	}
	logger.Info("Subscription created: ID %s, URL '%s', Name '%s'", created.ID, created.URL, created.Name)
}

// listSubscriptions handles listing all stored subscriptions.
func listSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := database.GetAllSubscriptions()
	if err != nil {
		logger.Error("listSubscriptions: Error querying subscriptions: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse{Message: "Internal server error"})
		return
	}

	if subs == nil { // Ensure an empty array is returned instead of null
		subs = []models.Subscription{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(subs); err != nil {
		logger.Error("listSubscriptions: Error encoding response: %v", err)
	}
	logger.Info("Fetched %d subscriptions", len(subs))
}

// updateSubscription handles changing a subscription's URL or name.
func updateSubscription(w http.ResponseWriter, r *http.Request) {
	subID := chi.URLParam(r, "subID")

	var sub models.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		logger.Error("updateSubscription: Error decoding request body: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse{Message: "Invalid request body: " + err.Error()})
		return
	}
	defer r.Body.Close()

	sub.ID = subID
	sub.URL = strings.TrimSpace(sub.URL)
	sub.Name = strings.TrimSpace(sub.Name)
	if sub.URL == "" {
		logger.Error("updateSubscription: url is required")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse{Message: "url is required"})
		return
	}

	updated, err := database.UpdateSubscription(sub)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			logger.Error("updateSubscription: Subscription with ID %s not found", subID)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse{Message: fmt.Sprintf("Subscription with ID %s not found", subID)})
		} else {
			logger.Error("updateSubscription: Error updating subscription %s: %v", subID, err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse{Message: "Internal server error"})
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(updated); err != nil {
		logger.Error("updateSubscription: Error encoding response for subscription %s: %v", updated.ID, err)
	}
	logger.Info("Subscription updated: ID %s, URL '%s', Name '%s'", updated.ID, updated.URL, updated.Name)
}

// deleteSubscription handles removing a stored subscription.
func deleteSubscription(w http.ResponseWriter, r *http.Request) {
	subID := chi.URLParam(r, "subID")
	logger.Info("Attempting to delete subscription with ID %s", subID)

	if err := database.DeleteSubscription(subID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			logger.Error("deleteSubscription: Subscription with ID %s not found for deletion", subID)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse{Message: fmt.Sprintf("Subscription with ID %s not found", subID)})
		} else {
			logger.Error("deleteSubscription: Error deleting subscription %s: %v", subID, err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse{Message: "Internal server error during delete"})
		}
		return
	}

	logger.Info("Subscription deleted successfully: ID %s", subID)
	w.WriteHeader(http.StatusNoContent)
}

// getMergedResult serves the last persisted merged document.
func getMergedResult(w http.ResponseWriter, r *http.Request) {
	content, err := database.GetMergedConfig()
	if err != nil {
		logger.Error("getMergedResult: Error loading merged config: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse{Message: "Internal server error"})
		return
	}
	if content == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(models.ErrorResponse{Message: "No merged config found. Please add subscriptions and refresh."})
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	w.Header().Set("Content-Disposition", "attachment; filename=merged_clash.yaml")
	if _, err := w.Write([]byte(content)); err != nil {
		logger.Error("getMergedResult: Error writing merged config response: %v", err)
	}
}

// refreshSubscriptions fetches all stored subscriptions, merges them and
// persists the result.
func refreshSubscriptions(w http.ResponseWriter, r *http.Request) {
	if err := refreshService.RefreshAll(r.Context()); err != nil {
		if errors.Is(err, core.ErrNoSubscriptions) || errors.Is(err, core.ErrAllFetchesFailed) {
			logger.Error("refreshSubscriptions: %v", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ErrorResponse{Message: err.Error()})
		} else {
			logger.Error("refreshSubscriptions: Internal server error: %v", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse{Message: err.Error()})
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(models.MessageResponse{Message: "Refresh successful"}); err != nil {
		logger.Error("refreshSubscriptions: Error encoding response: %v", err)
	}
	logger.Info("Manual subscription refresh completed.")
}

// mergeSubscriptionsDirect merges a caller-supplied URL list and returns the
// document directly without persisting it.
func mergeSubscriptionsDirect(w http.ResponseWriter, r *http.Request) {
	urls := r.URL.Query()["urls"]
	if len(urls) == 0 {
		logger.Error("mergeSubscriptionsDirect: urls query parameter is required")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse{Message: "urls query parameter is required"})
		return
	}

	merged, err := refreshService.MergeURLs(r.Context(), urls)
	if err != nil {
		if errors.Is(err, core.ErrAllFetchesFailed) {
			logger.Error("mergeSubscriptionsDirect: %v", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ErrorResponse{Message: err.Error()})
		} else {
			logger.Error("mergeSubscriptionsDirect: Internal server error: %v", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse{Message: err.Error()})
		}
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	w.Header().Set("Content-Disposition", "attachment; filename=merged_clash.yaml")
	if _, err := w.Write([]byte(merged)); err != nil {
		logger.Error("mergeSubscriptionsDirect: Error writing merged config response: %v", err)
	}
}
