package application

import (
	"github.com/ims-platform/inventory-service/internal/domain"
)

func toItemDTO(item *domain.Item) *ItemDTO {
	if item == nil {
		return nil
	}
	return &ItemDTO{
		ID:          item.ID.Hex(),
		Name:        item.Name,
		Category:    item.Category,
		Description: item.Description,
		Quantity:    item.Quantity,
		MinStock:    item.MinStock,
		Sales:       item.Sales,
		Price:       item.Price,
		ImageURL:    item.ImageURL,
		LastUpdated: item.LastUpdated,
		InStock:     item.InStock(),
		LowStock:    item.LowStock(),
	}
}

func toItemDTOs(items []*domain.Item) []*ItemDTO {
	dtos := make([]*ItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, toItemDTO(item))
	}
	return dtos
}

func toSalesRecordDTO(record *domain.SalesRecord) *SalesRecordDTO {
	if record == nil {
		return nil
	}
	return &SalesRecordDTO{
		ID:         record.ID.Hex(),
		ItemID:     record.ItemID,
		ItemName:   record.ItemName,
		Category:   record.Category,
		Quantity:   record.Quantity,
		UnitPrice:  record.UnitPrice,
		TotalPrice: record.TotalPrice,
		Timestamp:  record.Timestamp,
	}
}

func toSalesRecordDTOs(records []*domain.SalesRecord) []*SalesRecordDTO {
	dtos := make([]*SalesRecordDTO, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, toSalesRecordDTO(record))
	}
	return dtos
}

func toCategoryDTO(category *domain.Category) *CategoryDTO {
	if category == nil {
		return nil
	}
	return &CategoryDTO{
		ID:       category.ID.Hex(),
		Name:     category.Name,
		ImageURL: category.ImageURL,
	}
}

func toCategoryDTOs(categories []*domain.Category) []*CategoryDTO {
	dtos := make([]*CategoryDTO, 0, len(categories))
	for _, category := range categories {
		dtos = append(dtos, toCategoryDTO(category))
	}
	return dtos
}
