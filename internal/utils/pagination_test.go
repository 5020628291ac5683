package utils

import "testing"

func TestCalculatePageData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		page          int
		size          int
		curPageSize   int
		totalElements int
		want          PageData
	}{
		{
			name: "меньше одной страницы",
			page: 1, size: 20, curPageSize: 5, totalElements: 5,
			want: PageData{Size: 5, TotalElements: 5, TotalPages: 1, CurrentPage: 1, HasNextPage: false},
		},
		{
			name: "ровно одна страница",
			page: 1, size: 20, curPageSize: 20, totalElements: 20,
			want: PageData{Size: 20, TotalElements: 20, TotalPages: 1, CurrentPage: 1, HasNextPage: false},
		},
		{
			name: "несколько страниц с остатком",
			page: 1, size: 20, curPageSize: 20, totalElements: 47,
			want: PageData{Size: 20, TotalElements: 47, TotalPages: 3, CurrentPage: 1, HasNextPage: true},
		},
		{
			name: "последняя страница",
			page: 3, size: 20, curPageSize: 7, totalElements: 47,
			want: PageData{Size: 7, TotalElements: 47, TotalPages: 3, CurrentPage: 3, HasNextPage: false},
		},
		{
			name: "середина списка",
			page: 2, size: 10, curPageSize: 10, totalElements: 100,
			want: PageData{Size: 10, TotalElements: 100, TotalPages: 10, CurrentPage: 2, HasNextPage: true},
		},
		{
			name: "пустой список",
			page: 1, size: 20, curPageSize: 0, totalElements: 0,
			want: PageData{Size: 0, TotalElements: 0, TotalPages: 1, CurrentPage: 1, HasNextPage: false},
		},
		{
			name: "нулевой размер страницы",
			page: 1, size: 0, curPageSize: 0, totalElements: 47,
			want: PageData{Size: 0, TotalElements: 47, TotalPages: 0, CurrentPage: 1, HasNextPage: false},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CalculatePageData(tt.page, tt.size, tt.curPageSize, tt.totalElements)
			if got != tt.want {
				t.Fatalf("CalculatePageData(%d, %d, %d, %d) = %+v, ожидалось %+v",
					tt.page, tt.size, tt.curPageSize, tt.totalElements, got, tt.want)
			}
		})
	}
}

func TestCalculatePageDataHasNextPageBoundary(t *testing.T) {
	t.Parallel()

	// 47 элементов по 20 на странице дают 3 страницы
	for page := 1; page <= 4; page++ {
		got := CalculatePageData(page, 20, 20, 47)
		wantNext := page < 3
		if got.HasNextPage != wantNext {
			t.Errorf("страница %d: HasNextPage = %v, ожидалось %v", page, got.HasNextPage, wantNext)
		}
	}
}

func TestGeneratePageLinks(t *testing.T) {
	t.Parallel()

	// Существующая строка запроса отбрасывается
	links := GeneratePageLinks("http://h/x?page=9&size=9", 3, 20, 47, 3)

	if links.First != "http://h/x?page=1&size=20" {
		t.Errorf("First = %q", links.First)
	}
	if links.Prev != "http://h/x?page=2&size=20" {
		t.Errorf("Prev = %q", links.Prev)
	}
	if links.Self != "http://h/x?page=3&size=20" {
		t.Errorf("Self = %q", links.Self)
	}
	// Страница 3 из 3: следующей страницы нет, ссылка указывает на последнюю
	if links.Next != "http://h/x?page=3&size=20" {
		t.Errorf("Next = %q", links.Next)
	}
	if links.Last != "http://h/x?page=3&size=20" {
		t.Errorf("Last = %q", links.Last)
	}
}

func TestGeneratePageLinksMiddlePage(t *testing.T) {
	t.Parallel()

	links := GeneratePageLinks("http://h/listings", 2, 10, 100, 10)

	if links.Prev != "http://h/listings?page=1&size=10" {
		t.Errorf("Prev = %q", links.Prev)
	}
	if links.Next != "http://h/listings?page=3&size=10" {
		t.Errorf("Next = %q", links.Next)
	}
	if links.Last != "http://h/listings?page=10&size=10" {
		t.Errorf("Last = %q", links.Last)
	}
}

func TestGeneratePageLinksFirstPageClamp(t *testing.T) {
	t.Parallel()

	// На первой странице prev не уходит ниже единицы
	links := GeneratePageLinks("http://h/listings", 1, 10, 100, 10)

	if links.Prev != "http://h/listings?page=1&size=10" {
		t.Errorf("Prev = %q", links.Prev)
	}
	if links.Self != "http://h/listings?page=1&size=10" {
		t.Errorf("Self = %q", links.Self)
	}
}

func TestUpdateQueryStringParameter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		uri  string
		page int
		size int
		want string
	}{
		{"http://h/x", 1, 20, "http://h/x?page=1&size=20"},
		{"http://h/x?page=5&size=5", 2, 10, "http://h/x?page=2&size=10"},
		{"http://h/x?foo=bar&baz=qux", 3, 15, "http://h/x?page=3&size=15"},
	}

	for _, tt := range tests {
		if got := UpdateQueryStringParameter(tt.uri, tt.page, tt.size); got != tt.want {
			t.Errorf("UpdateQueryStringParameter(%q, %d, %d) = %q, ожидалось %q",
				tt.uri, tt.page, tt.size, got, tt.want)
		}
	}
}
