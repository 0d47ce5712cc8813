package offers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbpkg "github.com/angelmondragon/clips-backend/pkg/db"
	"github.com/angelmondragon/clips-backend/pkg/db/dbtest"
	"github.com/angelmondragon/clips-backend/pkg/db/models"
)

func TestRepositoryOfferLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	project := models.Project{ID: uuid.New(), CustomerID: uuid.New(), Title: "Roof repair"}
	require.NoError(t, conn.Create(&project).Error)

	found, err := repo.FindProject(ctx, project.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Roof repair", found.Title)

	missing, err := repo.FindProject(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	businessID := uuid.New()
	exists, err := repo.OfferExists(ctx, businessID, project.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.CreateOffer(ctx, &models.Offer{ID: uuid.New(), BusinessID: businessID, ProjectID: project.ID}))

	exists, err = repo.OfferExists(ctx, businessID, project.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	err = repo.CreateOffer(ctx, &models.Offer{ID: uuid.New(), BusinessID: businessID, ProjectID: project.ID})
	require.Error(t, err)
	assert.True(t, dbpkg.IsUniqueViolation(err, ""))
}
