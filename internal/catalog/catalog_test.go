package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	idx, err := Default()
	require.NoError(t, err)

	rec, ok := idx.ByID("spotify")
	require.True(t, ok)
	assert.Equal(t, "Spotify", rec.Name)
	assert.Equal(t, "music", rec.Category)
	assert.Equal(t, 199.0, rec.DefaultPrice)

	_, ok = idx.ByID("no_such_service")
	assert.False(t, ok)
}

func TestIndex_ByCategory(t *testing.T) {
	idx := MustDefault()

	vpn := idx.ByCategory("vpn")
	require.Len(t, vpn, 2)
	assert.Equal(t, "kaspersky", vpn[0].ID)
	assert.Equal(t, "nordvpn", vpn[1].ID)

	assert.Empty(t, idx.ByCategory("unknown"))
}

func TestIndex_Search(t *testing.T) {
	idx := MustDefault()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"по названию без учёта регистра", "SPOTIFY", []string{"spotify"}},
		{"по идентификатору", "geforce", []string{"geforce_now"}},
		{"по кириллице", "окко", nil},
		{"пустой запрос", "  ", nil},
		{"несколько совпадений", "vpn", []string{"nordvpn"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, r := range idx.Search(tt.query) {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestIndex_IncludedServices(t *testing.T) {
	idx := MustDefault()

	got := idx.IncludedServices("yandex_plus")
	assert.Equal(t, []string{"yandex_music", "kinopoisk", "yandex_disk_bonus", "yandex_afisha"}, got)

	assert.Equal(t, []string{"vk_music", "vk_video"}, idx.IncludedServices("vk_combo"))
	assert.Empty(t, idx.IncludedServices("spotify"))
}

func TestIndex_SimilarAndBundles(t *testing.T) {
	idx := MustDefault()

	clusters := idx.SimilarClusters("music")
	require.Len(t, clusters, 1)
	assert.Contains(t, clusters[0], "spotify")

	require.Len(t, idx.Bundles(), 3)
	assert.Equal(t, "sber_prime", idx.Bundles()[1].Bundle)
	assert.Equal(t, 399.0, idx.Bundles()[1].Price)
}

func TestFamily(t *testing.T) {
	idx := MustDefault()
	require.NotEmpty(t, idx.Families())

	yandex := idx.Families()[0]
	assert.True(t, yandex.Member("yandex_music"))
	assert.False(t, yandex.Member("spotify"))
	assert.False(t, yandex.Member(""))
	assert.True(t, yandex.IsBundle("yandex_plus"))
	assert.False(t, yandex.IsBundle("yandex_music"))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"битый yaml", "services: ["},
		{"пустой id", "services:\n  - name: x\n"},
		{"дубликат id", "services:\n  - id: a\n  - id: a\n"},
		{"бандл не из двух сервисов", "bundles:\n  - services: [a]\n    bundle: b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestIndex_CategoryName(t *testing.T) {
	idx := MustDefault()
	assert.Equal(t, "🎵 Музыка", idx.CategoryName("music"))
	assert.Equal(t, "📦 Другое", idx.CategoryName("nope"))
}
