package utils

import (
	"fmt"
	"math"
	"strings"
)

// PageData представляет метаданные страницы для списочных ответов
type PageData struct {
	Size          int  `json:"size"`           // Количество элементов на текущей странице
	TotalElements int  `json:"total_elements"` // Общее количество элементов
	TotalPages    int  `json:"total_pages"`    // Общее количество страниц
	CurrentPage   int  `json:"current_page"`   // Номер текущей страницы (начиная с 1)
	HasNextPage   bool `json:"has_next_page"`  // Есть ли следующая страница
}

// PageLinks представляет навигационные ссылки по страницам
type PageLinks struct {
	First string `json:"first"`
	Prev  string `json:"prev"`
	Self  string `json:"self"`
	Next  string `json:"next"`
	Last  string `json:"last"`
}

// CalculatePageData вычисляет метаданные пагинации.
// totalPages равен 1, если элементов меньше размера страницы,
// и 0, если размер страницы некорректен.
func CalculatePageData(page, size, curPageSize, totalElements int) PageData {
	totalPages := 0
	if size > 0 {
		if totalElements < size {
			totalPages = 1
		} else {
			totalPages = int(math.Ceil(float64(totalElements) / float64(size)))
		}
	}

	return PageData{
		Size:          curPageSize,
		TotalElements: totalElements,
		TotalPages:    totalPages,
		CurrentPage:   page,
		HasNextPage:   page < totalPages,
	}
}

// GeneratePageLinks строит навигационные ссылки на основе URL запроса.
// Существующая строка запроса отбрасывается и заменяется параметрами page и size.
func GeneratePageLinks(baseURL string, page, size, totalElements, totalPages int) PageLinks {
	prevPage := page - 1
	if page <= 1 {
		prevPage = 1
	}

	nextPage := page + 1
	if size > 0 && float64(page) >= float64(totalElements)/float64(size) {
		nextPage = int(math.Ceil(float64(totalElements) / float64(size)))
	}

	selfPage := page
	if selfPage < 1 {
		selfPage = 1
	}

	return PageLinks{
		First: UpdateQueryStringParameter(baseURL, 1, size),
		Prev:  UpdateQueryStringParameter(baseURL, prevPage, size),
		Self:  UpdateQueryStringParameter(baseURL, selfPage, size),
		Next:  UpdateQueryStringParameter(baseURL, nextPage, size),
		Last:  UpdateQueryStringParameter(baseURL, totalPages, size),
	}
}

// UpdateQueryStringParameter заменяет строку запроса URL параметрами page и size
func UpdateQueryStringParameter(uri string, page, size int) string {
	base := uri
	if i := strings.Index(uri, "?"); i >= 0 {
		base = uri[:i]
	}
	return fmt.Sprintf("%s?page=%d&size=%d", base, page, size)
}
