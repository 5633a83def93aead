package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/target/mmk-jobitems/internal/domain/model"
	apperrors "github.com/target/mmk-jobitems/internal/errors"
)

// parseBoolQuery returns the boolean value of a query param. Missing means false.
func parseBoolQuery(r *http.Request, key string) (bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, apperrors.ValidationField(key, key+" must be a boolean")
	}
	return b, nil
}

// parseIDPath reads the {id} path value as a job item identifier.
func parseIDPath(r *http.Request) (model.JobItemID, error) {
	id, err := model.ParseJobItemID(r.PathValue("id"))
	if err != nil {
		return 0, apperrors.ValidationField("id", "id must be an integer")
	}
	return id, nil
}

// parseIDsQuery reads ?ids=1,2,3 keeping order and duplicates.
func parseIDsQuery(r *http.Request, maxIDs int) ([]model.JobItemID, error) {
	ids, err := model.ParseJobItemIDs(r.URL.Query().Get("ids"))
	if err != nil {
		return nil, apperrors.ValidationField("ids", "ids must be a comma-separated list of integers")
	}
	if maxIDs > 0 && len(ids) > maxIDs {
		return nil, apperrors.ValidationField("ids", "ids cannot exceed "+strconv.Itoa(maxIDs)+" entries")
	}
	return ids, nil
}
