package app

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskboard/api/internal/apperr"
	"taskboard/api/internal/store"
)

func (s *HTTPServer) handleListProjects(c *gin.Context) {
	projects, err := s.service.ListProjects(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, projects)
}

func (s *HTTPServer) handleCreateProject(c *gin.Context) {
	var in ProjectInput
	if !s.bind(c, &in) {
		return
	}
	project, err := s.service.CreateProject(c.Request.Context(), currentUser(c).ID, in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, project)
}

func (s *HTTPServer) handleGetProject(c *gin.Context) {
	detail, err := s.service.GetProject(c.Request.Context(), resourceID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	grant := currentGrant(c)
	detail.Access = &grant
	respondData(c, http.StatusOK, detail)
}

func (s *HTTPServer) handleUpdateProject(c *gin.Context) {
	var in ProjectInput
	if !s.bind(c, &in) {
		return
	}
	project, err := s.service.UpdateProject(c.Request.Context(), resourceID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, project)
}

func (s *HTTPServer) handleDeleteProject(c *gin.Context) {
	if err := s.service.DeleteProject(c.Request.Context(), resourceID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": true})
}

func (s *HTTPServer) handleListMembers(c *gin.Context) {
	members, err := s.service.ListMembers(c.Request.Context(), currentProject(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, members)
}

func (s *HTTPServer) handleListShares(c *gin.Context) {
	shares, err := s.service.ListShares(c.Request.Context(), resourceID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, shares)
}

func (s *HTTPServer) handleCreateShare(c *gin.Context) {
	var in ShareInput
	if !s.bind(c, &in) {
		return
	}
	share, err := s.service.CreateShare(c.Request.Context(), currentProject(c), currentUser(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, share)
}

func (s *HTTPServer) handleDeleteShare(c *gin.Context) {
	userID, err := parseID(c, "userId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.service.DeleteShare(c.Request.Context(), resourceID(c), userID); err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": true})
}

func (s *HTTPServer) handleListProjectBoards(c *gin.Context) {
	boards, err := s.service.ListProjectBoards(c.Request.Context(), resourceID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, boards)
}

func (s *HTTPServer) handleCreateBoard(c *gin.Context) {
	var in BoardInput
	if !s.bind(c, &in) {
		return
	}
	board, err := s.service.CreateBoard(c.Request.Context(), resourceID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, board)
}

func (s *HTTPServer) handleListProjectLists(c *gin.Context) {
	lists, err := s.service.ListProjectLists(c.Request.Context(), resourceID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, lists)
}

func (s *HTTPServer) handleCreateList(c *gin.Context) {
	var in ListInput
	if !s.bind(c, &in) {
		return
	}
	list, err := s.service.CreateList(c.Request.Context(), resourceID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, list)
}

func (s *HTTPServer) handleListBoards(c *gin.Context) {
	boards, err := s.service.ListAccessibleBoards(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, boards)
}

func (s *HTTPServer) handleGetBoard(c *gin.Context) {
	board, err := s.service.GetBoard(c.Request.Context(), resourceID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, board)
}

func (s *HTTPServer) handleUpdateBoard(c *gin.Context) {
	var in BoardInput
	if !s.bind(c, &in) {
		return
	}
	board, err := s.service.UpdateBoard(c.Request.Context(), resourceID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, board)
}

func (s *HTTPServer) handleDeleteBoard(c *gin.Context) {
	if err := s.service.DeleteBoard(c.Request.Context(), resourceID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": true})
}

func (s *HTTPServer) handleListStages(c *gin.Context) {
	stages, err := s.service.ListStages(c.Request.Context(), resourceID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, stages)
}

func (s *HTTPServer) handleCreateStage(c *gin.Context) {
	var in StageInput
	if !s.bind(c, &in) {
		return
	}
	stage, err := s.service.CreateStage(c.Request.Context(), resourceID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, stage)
}

func (s *HTTPServer) handleUpdateStage(c *gin.Context) {
	var in StageInput
	if !s.bind(c, &in) {
		return
	}
	stage, err := s.service.UpdateStage(c.Request.Context(), resourceID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, stage)
}

func (s *HTTPServer) handleDeleteStage(c *gin.Context) {
	if err := s.service.DeleteStage(c.Request.Context(), resourceID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": true})
}

func (s *HTTPServer) handleReorderStage(c *gin.Context) {
	var in ReorderInput
	if !s.bind(c, &in) {
		return
	}
	stages, err := s.service.ReorderStage(c.Request.Context(), resourceID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, stages)
}

func (s *HTTPServer) handleListTasks(c *gin.Context) {
	var stageID *int64
	if raw := c.Query("stage_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.respondError(c, apperr.Validation("invalid stage_id"))
			return
		}
		stageID = &id
	}
	tasks, err := s.service.ListTasks(c.Request.Context(), resourceID(c), stageID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, tasks)
}

func (s *HTTPServer) handleCreateTask(c *gin.Context) {
	var in TaskInput
	if !s.bind(c, &in) {
		return
	}
	task, err := s.service.CreateTask(c.Request.Context(), resourceID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, task)
}

func (s *HTTPServer) handleGetTask(c *gin.Context) {
	task, err := s.service.GetTask(c.Request.Context(), resourceID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, task)
}

func (s *HTTPServer) handleUpdateTask(c *gin.Context) {
	var in TaskInput
	if !s.bind(c, &in) {
		return
	}
	task, err := s.service.UpdateTask(c.Request.Context(), resourceID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, task)
}

func (s *HTTPServer) handleDeleteTask(c *gin.Context) {
	if err := s.service.DeleteTask(c.Request.Context(), resourceID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": true})
}

func (s *HTTPServer) handleMoveTask(c *gin.Context) {
	var in MoveInput
	if !s.bind(c, &in) {
		return
	}
	task, err := s.service.MoveTask(c.Request.Context(), resourceID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, task)
}

func (s *HTTPServer) handleListFields(c *gin.Context) {
	fields, err := s.service.ListCustomFields(c.Request.Context(), resourceID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, fields)
}

func (s *HTTPServer) handleCreateField(c *gin.Context) {
	var in CustomFieldInput
	if !s.bind(c, &in) {
		return
	}
	field, err := s.service.CreateCustomField(c.Request.Context(), resourceID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, field)
}

func (s *HTTPServer) handleUpdateField(c *gin.Context) {
	fieldID, err := parseID(c, "fieldId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var in CustomFieldInput
	if !s.bind(c, &in) {
		return
	}
	field, err := s.service.UpdateCustomField(c.Request.Context(), resourceID(c), fieldID, in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, field)
}

func (s *HTTPServer) handleDeleteField(c *gin.Context) {
	fieldID, err := parseID(c, "fieldId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.service.DeleteCustomField(c.Request.Context(), resourceID(c), fieldID); err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": true})
}

func (s *HTTPServer) handleListLists(c *gin.Context) {
	lists, err := s.service.ListAccessibleLists(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, lists)
}

func (s *HTTPServer) handleGetList(c *gin.Context) {
	list, err := s.service.GetList(c.Request.Context(), resourceID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, list)
}

func (s *HTTPServer) handleUpdateList(c *gin.Context) {
	var in ListInput
	if !s.bind(c, &in) {
		return
	}
	list, err := s.service.UpdateList(c.Request.Context(), resourceID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, list)
}

func (s *HTTPServer) handleDeleteList(c *gin.Context) {
	if err := s.service.DeleteList(c.Request.Context(), resourceID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": true})
}

func (s *HTTPServer) handleListItems(c *gin.Context) {
	items, err := s.service.ListItems(c.Request.Context(), resourceID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, items)
}

func (s *HTTPServer) handleCreateItem(c *gin.Context) {
	var in ItemInput
	if !s.bind(c, &in) {
		return
	}
	item, err := s.service.CreateItem(c.Request.Context(), resourceID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, item)
}

func (s *HTTPServer) handleUpdateItem(c *gin.Context) {
	var in ItemInput
	if !s.bind(c, &in) {
		return
	}
	item, err := s.service.UpdateItem(c.Request.Context(), resourceID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, item)
}

func (s *HTTPServer) handleDeleteItem(c *gin.Context) {
	if err := s.service.DeleteItem(c.Request.Context(), resourceID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": true})
}

func (s *HTTPServer) handleToggleItem(c *gin.Context) {
	item, err := s.service.ToggleItem(c.Request.Context(), resourceID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, item)
}

func (s *HTTPServer) handleReorderItem(c *gin.Context) {
	var in ReorderInput
	if !s.bind(c, &in) {
		return
	}
	items, err := s.service.ReorderItem(c.Request.Context(), resourceID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, items)
}

func (s *HTTPServer) handleCaptureProject(c *gin.Context) {
	var in CaptureInput
	if !s.bind(c, &in) {
		return
	}
	tmpl, err := s.service.CaptureProjectTemplate(c.Request.Context(), resourceID(c), currentUser(c).ID, in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, tmpl)
}

func (s *HTTPServer) handleCaptureBoard(c *gin.Context) {
	var in CaptureInput
	if !s.bind(c, &in) {
		return
	}
	tmpl, err := s.service.CaptureBoardTemplate(c.Request.Context(), resourceID(c), currentUser(c).ID, in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, tmpl)
}

func (s *HTTPServer) handleCaptureList(c *gin.Context) {
	var in CaptureInput
	if !s.bind(c, &in) {
		return
	}
	tmpl, err := s.service.CaptureListTemplate(c.Request.Context(), resourceID(c), currentUser(c).ID, in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, tmpl)
}

func (s *HTTPServer) handleListTemplates(kind store.TemplateKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := s.service.ListTemplates(c.Request.Context(), kind, currentUser(c).ID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, list)
	}
}

func (s *HTTPServer) handleCreateTemplate(kind store.TemplateKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in TemplateInput
		if !s.bind(c, &in) {
			return
		}
		tmpl, err := s.service.CreateTemplate(c.Request.Context(), kind, currentUser(c).ID, in)
		if err != nil {
			s.respondError(c, err)
			return
		}
		respondData(c, http.StatusCreated, tmpl)
	}
}

func (s *HTTPServer) handleGetTemplate(kind store.TemplateKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			s.respondError(c, err)
			return
		}
		tmpl, err := s.service.GetTemplate(c.Request.Context(), kind, id, currentUser(c).ID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, tmpl)
	}
}

func (s *HTTPServer) handleUpdateTemplate(kind store.TemplateKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			s.respondError(c, err)
			return
		}
		var in TemplateInput
		if !s.bind(c, &in) {
			return
		}
		tmpl, err := s.service.UpdateTemplate(c.Request.Context(), kind, id, currentUser(c).ID, in)
		if err != nil {
			s.respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, tmpl)
	}
}

func (s *HTTPServer) handleDeleteTemplate(kind store.TemplateKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			s.respondError(c, err)
			return
		}
		if err := s.service.DeleteTemplate(c.Request.Context(), kind, id, currentUser(c).ID); err != nil {
			s.respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, gin.H{"deleted": true})
	}
}

func (s *HTTPServer) handleApplyTemplate(kind store.TemplateKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			s.respondError(c, err)
			return
		}
		var in ApplyInput
		if !s.bind(c, &in) {
			return
		}
		ctx := c.Request.Context()
		userID := currentUser(c).ID

		var result any
		switch kind {
		case store.TemplateBoard:
			result, err = s.service.ApplyBoardTemplate(ctx, id, userID, in)
		case store.TemplateList:
			result, err = s.service.ApplyListTemplate(ctx, id, userID, in)
		default:
			result, err = s.service.ApplyProjectTemplate(ctx, id, userID, in)
		}
		if err != nil {
			s.respondError(c, err)
			return
		}
		respondData(c, http.StatusCreated, result)
	}
}

func (s *HTTPServer) handleSeedTemplates(c *gin.Context) {
	seeded, err := s.service.SeedDefaultTemplates(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, seeded)
}
