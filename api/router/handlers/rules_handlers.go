package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"submerger/database"
	"submerger/logger"
	"submerger/models"
)

// getCustomRules returns the stored custom rules text.
func getCustomRules(w http.ResponseWriter, r *http.Request) {
	rules, err := database.GetCustomRules()
	if err != nil {
		logger.Error("getCustomRules: Error loading custom rules: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse{Message: "Internal server error"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(models.RulesResponse{Rules: rules}); err != nil {
		logger.Error("getCustomRules: Error encoding response: %v", err)
	}
}

// updateCustomRules replaces the custom rules completely. The body is plain
// text, one rule per line.
func updateCustomRules(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("updateCustomRules: Error reading request body: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse{Message: "Invalid request body: " + err.Error()})
		return
	}
	defer r.Body.Close()

	if err := database.SaveCustomRules(string(body)); err != nil {
		logger.Error("updateCustomRules: Error saving custom rules: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse{Message: "Internal server error"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(models.MessageResponse{Message: "Custom rules updated successfully"}); err != nil {
		logger.Error("updateCustomRules: Error encoding response: %v", err)
	}
	logger.Info("Custom rules updated (%d bytes).", len(body))
}
